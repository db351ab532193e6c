package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/megahub-io/megahub/internal/authz"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	"github.com/megahub-io/megahub/internal/content"
	contentdomain "github.com/megahub-io/megahub/internal/content/domain"
	"github.com/megahub-io/megahub/internal/content/service"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"github.com/megahub-io/megahub/internal/scope"
	"github.com/megahub-io/megahub/internal/tenant"
	pkgdb "github.com/megahub-io/megahub/pkg/db"
)

type contentFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  contentdomain.Service
}

func setupContent(t *testing.T) *contentFixture {
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

	svc := service.New(service.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Scoper: scoper,
	})
	return &contentFixture{db: db, node: node, svc: svc}
}

func (f *contentFixture) newBrand(t *testing.T) *branddomain.Brand {
	t.Helper()
	brand := &branddomain.Brand{
		ID:        f.node.Generate(),
		CompanyID: f.node.Generate(),
		Name:      f.node.Generate().String(),
		Slug:      f.node.Generate().String(),
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(brand).Error)
	return brand
}

func (f *contentFixture) newUser(t *testing.T, kind identitydomain.UserKind, companyID *snowflake.ID) *identitydomain.User {
	t.Helper()
	user := &identitydomain.User{
		ID:          f.node.Generate(),
		IdentityKey: f.node.Generate().String(),
		DisplayName: "test",
		Kind:        kind,
		CompanyID:   companyID,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *contentFixture) scopedCtx(user *identitydomain.User, brand *branddomain.Brand) context.Context {
	companyID := brand.CompanyID
	return tenant.WithContext(context.Background(), &tenant.RequestContext{
		User:      user,
		CompanyID: &companyID,
		Brand:     brand,
		Source:    tenant.SourceHeader,
	})
}

// seedChain provisions website, page and article through the service
// itself, authored by the given user.
func (f *contentFixture) seedChain(t *testing.T, ctx context.Context) *contentdomain.Article {
	t.Helper()

	site, err := f.svc.CreateWebsite(ctx, contentdomain.CreateWebsiteRequest{Name: "site"})
	require.NoError(t, err)
	page, err := f.svc.CreatePage(ctx, contentdomain.CreatePageRequest{
		WebsiteID: site.ID.String(),
		Title:     "page",
	})
	require.NoError(t, err)
	article, err := f.svc.CreateArticle(ctx, contentdomain.CreateArticleRequest{
		PageID: page.ID.String(),
		Title:  "article",
	})
	require.NoError(t, err)
	return article
}

func TestDeleteArticleByAuthor(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	author := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	ctx := f.scopedCtx(author, brand)
	article := f.seedChain(t, ctx)

	require.NoError(t, f.svc.DeleteArticle(ctx, article.ID))

	_, err := f.svc.GetArticle(ctx, article.ID)
	require.ErrorIs(t, err, contentdomain.ErrNotFound)
}

func TestDeleteArticleNonAuthorMemberForbidden(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	author := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	article := f.seedChain(t, f.scopedCtx(author, brand))

	peer := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	err := f.svc.DeleteArticle(f.scopedCtx(peer, brand), article.ID)
	require.ErrorIs(t, err, authz.ErrForbidden)

	// The article survives.
	got, err := f.svc.GetArticle(f.scopedCtx(peer, brand), article.ID)
	require.NoError(t, err)
	require.Equal(t, article.ID, got.ID)
}

func TestDeleteArticleByCompanyAdmin(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	author := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	article := f.seedChain(t, f.scopedCtx(author, brand))

	admin := f.newUser(t, identitydomain.KindCompanyAdmin, &brand.CompanyID)
	require.NoError(t, f.svc.DeleteArticle(f.scopedCtx(admin, brand), article.ID))
}

func TestDeleteArticleCrossBrandReadsAsMissing(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	author := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	article := f.seedChain(t, f.scopedCtx(author, brand))

	otherBrand := f.newBrand(t)
	outsider := f.newUser(t, identitydomain.KindBrandMember, &otherBrand.CompanyID)
	err := f.svc.DeleteArticle(f.scopedCtx(outsider, otherBrand), article.ID)
	require.ErrorIs(t, err, contentdomain.ErrNotFound)
}

func TestCreateCollectionBindsBrand(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	user := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	ctx := f.scopedCtx(user, brand)

	collection, err := f.svc.CreateCollection(ctx, "reading list")
	require.NoError(t, err)
	require.Equal(t, brand.ID, collection.BrandID)

	// Empty collections are visible to their own brand right away.
	collections, err := f.svc.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 1)
	require.Equal(t, collection.ID, collections[0].ID)

	// And invisible elsewhere.
	otherBrand := f.newBrand(t)
	other := f.newUser(t, identitydomain.KindBrandMember, &otherBrand.CompanyID)
	collections, err = f.svc.ListCollections(f.scopedCtx(other, otherBrand))
	require.NoError(t, err)
	require.Empty(t, collections)
}

func TestCreateCollectionRequiresScope(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	user := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	companyID := brand.CompanyID
	ctx := tenant.WithContext(context.Background(), &tenant.RequestContext{
		User:      user,
		CompanyID: &companyID,
		Source:    tenant.SourceNone,
	})

	_, err := f.svc.CreateCollection(ctx, "reading list")
	require.ErrorIs(t, err, scope.ErrNoScope)
}

func TestAddToCollectionRefusesForeignRows(t *testing.T) {
	f := setupContent(t)
	brand := f.newBrand(t)
	user := f.newUser(t, identitydomain.KindBrandMember, &brand.CompanyID)
	ctx := f.scopedCtx(user, brand)
	article := f.seedChain(t, ctx)

	otherBrand := f.newBrand(t)
	other := f.newUser(t, identitydomain.KindBrandMember, &otherBrand.CompanyID)
	otherCtx := f.scopedCtx(other, otherBrand)
	foreignArticle := f.seedChain(t, otherCtx)

	collection, err := f.svc.CreateCollection(ctx, "reading list")
	require.NoError(t, err)

	// A foreign article fails exactly like a missing one.
	err = f.svc.AddToCollection(ctx, collection.ID, foreignArticle.ID)
	require.ErrorIs(t, err, scope.ErrNotVisible)

	// A foreign collection too.
	err = f.svc.AddToCollection(otherCtx, collection.ID, foreignArticle.ID)
	require.ErrorIs(t, err, scope.ErrNotVisible)

	require.NoError(t, f.svc.AddToCollection(ctx, collection.ID, article.ID))
}
