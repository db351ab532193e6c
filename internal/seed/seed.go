// Package seed bootstraps the rows a fresh deployment needs before any
// request is served: a platform superuser and the feature catalog.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	featuredomain "github.com/megahub-io/megahub/internal/feature/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	"gorm.io/gorm"
)

const (
	superuserIdentityKey = "root@megahub.local"
	superuserDisplay     = "MegaHub Root"
)

// catalogEntry seeds one feature definition. Seeding is additive; existing
// rows are never modified.
type catalogEntry struct {
	Key          string
	Name         string
	Description  string
	DefaultLimit *int
}

func defaultCatalog() []catalogEntry {
	apiCalls := 10000
	exports := 50
	return []catalogEntry{
		{Key: "api_calls", Name: "API Calls", Description: "Monthly API request allowance", DefaultLimit: &apiCalls},
		{Key: "data_exports", Name: "Data Exports", Description: "Bulk export jobs", DefaultLimit: &exports},
		{Key: "custom_domains", Name: "Custom Domains", Description: "Serve websites on customer domains"},
	}
}

// EnsurePlatformSuperuser creates the root platform user if none exists.
func EnsurePlatformSuperuser(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing identitydomain.User
		err := tx.Where("identity_key = ?", superuserIdentityKey).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user := identitydomain.User{
			ID:          node.Generate(),
			IdentityKey: superuserIdentityKey,
			DisplayName: superuserDisplay,
			Kind:        identitydomain.KindPlatformSuperuser,
		}
		return tx.Create(&user).Error
	})
}

// EnsureFeatureCatalog inserts any catalog features that are missing.
func EnsureFeatureCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range defaultCatalog() {
			var existing featuredomain.Feature
			err := tx.Where("key = ?", entry.Key).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			feature := featuredomain.Feature{
				ID:           node.Generate(),
				Key:          entry.Key,
				Name:         entry.Name,
				Description:  entry.Description,
				DefaultLimit: entry.DefaultLimit,
			}
			if err := tx.Create(&feature).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
