package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/megahub-io/megahub/internal/authz"
	"github.com/megahub-io/megahub/internal/content/domain"
	"github.com/megahub-io/megahub/internal/scope"
	"github.com/megahub-io/megahub/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kind names duplicated from the descriptor registration; the service and
// the descriptors live in the same package tree and must agree.
const (
	kindWebsite           = "website"
	kindPage              = "page"
	kindArticle           = "article"
	kindCollection        = "collection"
	kindCollectionContent = "collection_content"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Scoper *scope.Scoper
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	scoper *scope.Scoper
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("content.service"),
		genID:  p.GenID,
		scoper: p.Scoper,
	}
}

func (s *Service) CreateWebsite(ctx context.Context, req domain.CreateWebsiteRequest) (*domain.Website, error) {
	rc, ok := tenant.FromContext(ctx)
	if !ok || rc.Brand == nil {
		return nil, scope.ErrNoScope
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	website := &domain.Website{
		ID:        s.genID.Generate(),
		BrandID:   rc.Brand.ID,
		Name:      name,
		Domain:    strings.TrimSpace(req.Domain),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(website).Error; err != nil {
		return nil, err
	}
	return website, nil
}

func (s *Service) ListWebsites(ctx context.Context) ([]domain.Website, error) {
	q, err := s.scoper.For(ctx, kindWebsite, s.db.WithContext(ctx).Model(&domain.Website{}))
	if err != nil {
		return nil, err
	}

	var websites []domain.Website
	if err := q.Order("websites.id ASC").Find(&websites).Error; err != nil {
		return nil, err
	}
	return websites, nil
}

func (s *Service) CreatePage(ctx context.Context, req domain.CreatePageRequest) (*domain.Page, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidInput
	}
	websiteID, err := snowflake.ParseString(req.WebsiteID)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	if err := s.scoper.AssertSameBrand(ctx, kindWebsite, websiteID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	page := &domain.Page{
		ID:        s.genID.Generate(),
		WebsiteID: websiteID,
		Title:     title,
		Slug:      slug.Make(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(page).Error; err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) ListPages(ctx context.Context, websiteID snowflake.ID) ([]domain.Page, error) {
	q, err := s.scoper.For(ctx, kindPage, s.db.WithContext(ctx).Model(&domain.Page{}))
	if err != nil {
		return nil, err
	}
	if websiteID != 0 {
		q = q.Where("pages.website_id = ?", websiteID)
	}

	var pages []domain.Page
	if err := q.Order("pages.id ASC").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *Service) CreateArticle(ctx context.Context, req domain.CreateArticleRequest) (*domain.Article, error) {
	rc, ok := tenant.FromContext(ctx)
	if !ok || rc.User == nil {
		return nil, scope.ErrNoScope
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidInput
	}
	pageID, err := snowflake.ParseString(req.PageID)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	if err := s.scoper.AssertSameBrand(ctx, kindPage, pageID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	article := &domain.Article{
		ID:           s.genID.Generate(),
		PageID:       pageID,
		AuthorUserID: rc.User.ID,
		Title:        title,
		Body:         req.Body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

func (s *Service) GetArticle(ctx context.Context, id snowflake.ID) (*domain.Article, error) {
	q, err := s.scoper.For(ctx, kindArticle, s.db.WithContext(ctx).Model(&domain.Article{}))
	if err != nil {
		return nil, err
	}

	var articles []domain.Article
	if err := q.Where("articles.id = ?", id).Limit(1).Find(&articles).Error; err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, domain.ErrNotFound
	}
	return &articles[0], nil
}

// DeleteArticle soft-deletes an article. Authors may delete their own;
// company admins and superusers anything within reach. Out-of-scope
// articles read as missing.
func (s *Service) DeleteArticle(ctx context.Context, id snowflake.ID) error {
	rc, ok := tenant.FromContext(ctx)
	if !ok || rc.User == nil {
		return scope.ErrNoScope
	}

	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	brandID, err := s.scoper.BrandIDOf(ctx, kindArticle, id)
	if err != nil {
		return err
	}

	target := authz.Target{
		Kind:        authz.ObjectContent,
		Action:      authz.ActionWrite,
		OwnerUserID: &article.AuthorUserID,
		BrandID:     &brandID,
	}
	if err := authz.Evaluate(ctx, rc, target,
		authz.PlatformSuperuser,
		authz.CompanyAdmin,
		authz.SameBrand,
		authz.Owner,
	); err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_deleted": true,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Service) ListArticles(ctx context.Context) ([]domain.Article, error) {
	q, err := s.scoper.For(ctx, kindArticle, s.db.WithContext(ctx).Model(&domain.Article{}))
	if err != nil {
		return nil, err
	}

	var articles []domain.Article
	if err := q.Order("articles.id ASC").Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *Service) CreateCollection(ctx context.Context, name string) (*domain.Collection, error) {
	rc, ok := tenant.FromContext(ctx)
	if !ok || rc.Brand == nil {
		return nil, scope.ErrNoScope
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	collection := &domain.Collection{
		ID:        s.genID.Generate(),
		BrandID:   rc.Brand.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(collection).Error; err != nil {
		return nil, err
	}
	return collection, nil
}

func (s *Service) AddToCollection(ctx context.Context, collectionID, articleID snowflake.ID) error {
	// Both ends must sit in the caller's brand; out-of-scope rows are
	// refused the same way as missing ones.
	if err := s.scoper.AssertSameBrand(ctx, kindCollection, collectionID); err != nil {
		return err
	}
	if err := s.scoper.AssertSameBrand(ctx, kindArticle, articleID); err != nil {
		return err
	}

	var linked int64
	if err := s.db.WithContext(ctx).
		Model(&domain.CollectionArticle{}).
		Where("collection_id = ?", collectionID).
		Count(&linked).Error; err != nil {
		return err
	}
	if linked > 0 {
		// The member-article path must agree with the brand column.
		if err := s.scoper.AssertSameBrand(ctx, kindCollectionContent, collectionID); err != nil {
			return err
		}
	}

	return s.db.WithContext(ctx).Create(&domain.CollectionArticle{
		ID:           s.genID.Generate(),
		CollectionID: collectionID,
		ArticleID:    articleID,
		CreatedAt:    time.Now().UTC(),
	}).Error
}

func (s *Service) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	q, err := s.scoper.For(ctx, kindCollection, s.db.WithContext(ctx).Model(&domain.Collection{}))
	if err != nil {
		return nil, err
	}

	var collections []domain.Collection
	if err := q.Order("collections.id ASC").Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}
