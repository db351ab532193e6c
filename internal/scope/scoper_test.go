package scope_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	"github.com/megahub-io/megahub/internal/content"
	contentdomain "github.com/megahub-io/megahub/internal/content/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/scope"
	"github.com/megahub-io/megahub/internal/tenant"
	pkgdb "github.com/megahub-io/megahub/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// chain is one brand's seeded website-page-article path.
type chain struct {
	brand   *branddomain.Brand
	website *contentdomain.Website
	page    *contentdomain.Page
	article *contentdomain.Article
}

type scoperFixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	scoper *scope.Scoper
}

func setupScoper(t *testing.T) *scoperFixture {
	t.Helper()

	db, err := pkgdb.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&branddomain.Brand{},
		&identitydomain.User{},
		&contentdomain.Website{},
		&contentdomain.Page{},
		&contentdomain.Article{},
		&contentdomain.Collection{},
		&contentdomain.CollectionArticle{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	reg := scope.NewRegistry()
	content.RegisterDescriptors(reg)

	scoper := scope.NewScoper(scope.ScoperParams{
		DB:  db,
		Log: zap.NewNop(),
		Reg: reg,
	})
	return &scoperFixture{db: db, node: node, scoper: scoper}
}

func (f *scoperFixture) newUser(t *testing.T, kind identitydomain.UserKind) *identitydomain.User {
	t.Helper()
	user := &identitydomain.User{
		ID:          f.node.Generate(),
		IdentityKey: f.node.Generate().String(),
		DisplayName: "test",
		Kind:        kind,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

// newChain builds a fresh brand with one live website, page and article.
func (f *scoperFixture) newChain(t *testing.T) *chain {
	t.Helper()

	brand := &branddomain.Brand{
		ID:        f.node.Generate(),
		CompanyID: f.node.Generate(),
		Name:      f.node.Generate().String(),
		Slug:      f.node.Generate().String(),
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(brand).Error)

	website := &contentdomain.Website{
		ID:      f.node.Generate(),
		BrandID: brand.ID,
		Name:    "site",
	}
	require.NoError(t, f.db.Create(website).Error)

	page := &contentdomain.Page{
		ID:        f.node.Generate(),
		WebsiteID: website.ID,
		Title:     "page",
		Slug:      "page",
	}
	require.NoError(t, f.db.Create(page).Error)

	article := &contentdomain.Article{
		ID:           f.node.Generate(),
		PageID:       page.ID,
		AuthorUserID: f.node.Generate(),
		Title:        "article",
	}
	require.NoError(t, f.db.Create(article).Error)

	return &chain{brand: brand, website: website, page: page, article: article}
}

func (f *scoperFixture) newCollection(t *testing.T, brandID snowflake.ID, articleIDs ...snowflake.ID) *contentdomain.Collection {
	t.Helper()
	collection := &contentdomain.Collection{
		ID:      f.node.Generate(),
		BrandID: brandID,
		Name:    f.node.Generate().String(),
	}
	require.NoError(t, f.db.Create(collection).Error)
	for _, id := range articleIDs {
		require.NoError(t, f.db.Create(&contentdomain.CollectionArticle{
			ID:           f.node.Generate(),
			CollectionID: collection.ID,
			ArticleID:    id,
		}).Error)
	}
	return collection
}

// memberCtx scopes the context to one brand as an ordinary member.
func (f *scoperFixture) memberCtx(t *testing.T, brand *branddomain.Brand) context.Context {
	t.Helper()
	user := f.newUser(t, identitydomain.KindBrandMember)
	companyID := brand.CompanyID
	return tenant.WithContext(context.Background(), &tenant.RequestContext{
		User:      user,
		CompanyID: &companyID,
		Brand:     brand,
		Source:    tenant.SourceHeader,
	})
}

// staffCtx is platform staff running unscoped with admin bypass.
func (f *scoperFixture) staffCtx(t *testing.T) context.Context {
	t.Helper()
	user := f.newUser(t, identitydomain.KindPlatformStaff)
	return tenant.WithContext(context.Background(), &tenant.RequestContext{
		User:          user,
		Source:        tenant.SourceNone,
		IsAdminBypass: true,
	})
}

func (f *scoperFixture) listIDs(t *testing.T, ctx context.Context, kind string, model any, table string, opts ...scope.Option) []snowflake.ID {
	t.Helper()
	q, err := f.scoper.For(ctx, kind, f.db.Model(model), opts...)
	require.NoError(t, err)

	var ids []snowflake.ID
	require.NoError(t, q.Order(table+".id ASC").Pluck(table+".id", &ids).Error)
	return ids
}

func TestScoperDirectBrandColumn(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	other := f.newChain(t)
	ctx := f.memberCtx(t, mine.brand)

	ids := f.listIDs(t, ctx, content.KindWebsite, &contentdomain.Website{}, "websites")
	require.Equal(t, []snowflake.ID{mine.website.ID}, ids)
	require.NotContains(t, ids, other.website.ID)
}

func TestScoperSingleHop(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	f.newChain(t)
	ctx := f.memberCtx(t, mine.brand)

	ids := f.listIDs(t, ctx, content.KindPage, &contentdomain.Page{}, "pages")
	require.Equal(t, []snowflake.ID{mine.page.ID}, ids)
}

func TestScoperTwoHops(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	f.newChain(t)
	ctx := f.memberCtx(t, mine.brand)

	ids := f.listIDs(t, ctx, content.KindArticle, &contentdomain.Article{}, "articles")
	require.Equal(t, []snowflake.ID{mine.article.ID}, ids)
}

func TestScoperSoftDeleteCutsTheChain(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	ctx := f.memberCtx(t, mine.brand)

	require.NoError(t, f.db.Model(&contentdomain.Page{}).
		Where("id = ?", mine.page.ID).
		Update("is_deleted", true).Error)

	// A deleted parent hides every descendant, not just the row itself.
	require.Empty(t, f.listIDs(t, ctx, content.KindPage, &contentdomain.Page{}, "pages"))
	require.Empty(t, f.listIDs(t, ctx, content.KindArticle, &contentdomain.Article{}, "articles"))
	require.Equal(t, []snowflake.ID{mine.website.ID},
		f.listIDs(t, ctx, content.KindWebsite, &contentdomain.Website{}, "websites"))
}

func TestScoperWithDeletedIsStaffOnly(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	require.NoError(t, f.db.Model(&contentdomain.Website{}).
		Where("id = ?", mine.website.ID).
		Update("is_deleted", true).Error)

	memberCtx := f.memberCtx(t, mine.brand)
	require.Empty(t, f.listIDs(t, memberCtx, content.KindWebsite, &contentdomain.Website{}, "websites", scope.WithDeleted()))

	staffCtx := f.staffCtx(t)
	ids := f.listIDs(t, staffCtx, content.KindWebsite, &contentdomain.Website{}, "websites", scope.WithDeleted())
	require.Contains(t, ids, mine.website.ID)
}

func TestScoperAdminBypassWithoutBrand(t *testing.T) {
	f := setupScoper(t)
	a := f.newChain(t)
	b := f.newChain(t)
	require.NoError(t, f.db.Model(&contentdomain.Website{}).
		Where("id = ?", b.website.ID).
		Update("is_deleted", true).Error)

	// No brand filter, but soft-deleted rows stay hidden by default.
	ids := f.listIDs(t, f.staffCtx(t), content.KindWebsite, &contentdomain.Website{}, "websites")
	require.Equal(t, []snowflake.ID{a.website.ID}, ids)
}

func TestScoperUnscopedMemberRefused(t *testing.T) {
	f := setupScoper(t)
	user := f.newUser(t, identitydomain.KindBrandMember)
	ctx := tenant.WithContext(context.Background(), &tenant.RequestContext{
		User:   user,
		Source: tenant.SourceNone,
	})

	_, err := f.scoper.For(ctx, content.KindWebsite, f.db.Model(&contentdomain.Website{}))
	require.ErrorIs(t, err, scope.ErrNoScope)

	_, err = f.scoper.For(context.Background(), content.KindWebsite, f.db.Model(&contentdomain.Website{}))
	require.ErrorIs(t, err, scope.ErrNoScope)
}

func TestScoperUnknownKind(t *testing.T) {
	f := setupScoper(t)
	ctx := f.memberCtx(t, f.newChain(t).brand)

	_, err := f.scoper.For(ctx, "invoice", f.db.Model(&contentdomain.Website{}))
	require.ErrorIs(t, err, scope.ErrUnknownKind)
}

func TestScoperCollectionDirect(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	other := f.newChain(t)

	// An empty collection is visible through its own brand column.
	empty := f.newCollection(t, mine.brand.ID)
	foreign := f.newCollection(t, other.brand.ID, other.article.ID)

	ctx := f.memberCtx(t, mine.brand)
	ids := f.listIDs(t, ctx, content.KindCollection, &contentdomain.Collection{}, "collections")
	require.Equal(t, []snowflake.ID{empty.ID}, ids)
	require.NotContains(t, ids, foreign.ID)
}

func TestScoperCollectionEdge(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	other := f.newChain(t)

	reachable := f.newCollection(t, mine.brand.ID, mine.article.ID)
	foreign := f.newCollection(t, other.brand.ID, other.article.ID)
	orphan := f.newCollection(t, mine.brand.ID)

	// The member-article path only reaches collections holding a visible
	// article; an empty collection is invisible on this path.
	ctx := f.memberCtx(t, mine.brand)
	ids := f.listIDs(t, ctx, content.KindCollectionContent, &contentdomain.Collection{}, "collections")
	require.Equal(t, []snowflake.ID{reachable.ID}, ids)
	require.NotContains(t, ids, foreign.ID)
	require.NotContains(t, ids, orphan.ID)
}

func TestScoperCollectionEdgeFollowsArticleDeletion(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	collection := f.newCollection(t, mine.brand.ID, mine.article.ID)
	ctx := f.memberCtx(t, mine.brand)

	require.Equal(t, []snowflake.ID{collection.ID},
		f.listIDs(t, ctx, content.KindCollectionContent, &contentdomain.Collection{}, "collections"))

	require.NoError(t, f.db.Model(&contentdomain.Article{}).
		Where("id = ?", mine.article.ID).
		Update("is_deleted", true).Error)

	require.Empty(t, f.listIDs(t, ctx, content.KindCollectionContent, &contentdomain.Collection{}, "collections"))

	// The direct brand column still reaches it.
	require.Equal(t, []snowflake.ID{collection.ID},
		f.listIDs(t, ctx, content.KindCollection, &contentdomain.Collection{}, "collections"))
}

func TestScoperBrandIDOf(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	collection := f.newCollection(t, mine.brand.ID, mine.article.ID)

	for kind, id := range map[string]snowflake.ID{
		content.KindWebsite:           mine.website.ID,
		content.KindPage:              mine.page.ID,
		content.KindArticle:           mine.article.ID,
		content.KindCollection:        collection.ID,
		content.KindCollectionContent: collection.ID,
	} {
		got, err := f.scoper.BrandIDOf(context.Background(), kind, id)
		require.NoError(t, err, kind)
		require.Equal(t, mine.brand.ID, got, kind)
	}
}

func TestScoperAssertSameBrand(t *testing.T) {
	f := setupScoper(t)
	mine := f.newChain(t)
	other := f.newChain(t)
	ctx := f.memberCtx(t, mine.brand)

	require.NoError(t, f.scoper.AssertSameBrand(ctx, content.KindArticle, mine.article.ID))

	// Cross-brand and nonexistent rows fail with the same error.
	err := f.scoper.AssertSameBrand(ctx, content.KindArticle, other.article.ID)
	require.ErrorIs(t, err, scope.ErrNotVisible)

	err = f.scoper.AssertSameBrand(ctx, content.KindArticle, f.node.Generate())
	require.ErrorIs(t, err, scope.ErrNotVisible)
}
