package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateWebsiteRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

type CreatePageRequest struct {
	WebsiteID string `json:"website_id"`
	Title     string `json:"title"`
}

type CreateArticleRequest struct {
	PageID string `json:"page_id"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
}

// Service is the brand-scoped content surface. Every read and write runs
// through the query scoper; nothing here takes a brand ID from the caller.
type Service interface {
	CreateWebsite(ctx context.Context, req CreateWebsiteRequest) (*Website, error)
	ListWebsites(ctx context.Context) ([]Website, error)
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)
	ListPages(ctx context.Context, websiteID snowflake.ID) ([]Page, error)
	CreateArticle(ctx context.Context, req CreateArticleRequest) (*Article, error)
	GetArticle(ctx context.Context, id snowflake.ID) (*Article, error)
	DeleteArticle(ctx context.Context, id snowflake.ID) error
	ListArticles(ctx context.Context) ([]Article, error)
	CreateCollection(ctx context.Context, name string) (*Collection, error)
	AddToCollection(ctx context.Context, collectionID, articleID snowflake.ID) error
	ListCollections(ctx context.Context) ([]Collection, error)
}

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidInput = errors.New("invalid_input")
)
