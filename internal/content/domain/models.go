// Package domain contains the scoped content models. The chain website →
// page → article exercises multi-hop brand paths; collections exercise the
// join-table path.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Website struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BrandID   snowflake.ID `gorm:"not null;index" json:"brand_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Domain    string       `gorm:"type:text" json:"domain,omitempty"`
	IsDeleted bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Website) TableName() string { return "websites" }

type Page struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	WebsiteID snowflake.ID `gorm:"not null;index" json:"website_id"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Slug      string       `gorm:"type:text;not null" json:"slug"`
	IsDeleted bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Page) TableName() string { return "pages" }

type Article struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	PageID       snowflake.ID `gorm:"not null;index" json:"page_id"`
	AuthorUserID snowflake.ID `gorm:"not null;index" json:"author_user_id"`
	Title        string       `gorm:"type:text;not null" json:"title"`
	Body         string       `gorm:"type:text" json:"body,omitempty"`
	IsDeleted    bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Article) TableName() string { return "articles" }

// Collection groups articles across pages. It carries its own brand
// column; the member articles provide a second, join-table path that must
// agree with it.
type Collection struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BrandID   snowflake.ID `gorm:"not null;index" json:"brand_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Collection) TableName() string { return "collections" }

type CollectionArticle struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	CollectionID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_collection_article,priority:1" json:"collection_id"`
	ArticleID    snowflake.ID `gorm:"not null;uniqueIndex:ux_collection_article,priority:2" json:"article_id"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CollectionArticle) TableName() string { return "collection_articles" }
