package migration

import (
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/internal/authz"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	contentdomain "github.com/megahub-io/megahub/internal/content/domain"
	featuredomain "github.com/megahub-io/megahub/internal/feature/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"gorm.io/gorm"
)

// autoMigrate covers the non-postgres paths, where the versioned SQL
// migrations do not run.
func autoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&identitydomain.User{},
		&companydomain.Company{},
		&branddomain.Brand{},
		&branddomain.BrandMember{},
		&slotsdomain.Slots{},
		&alertdomain.UsageAlert{},
		&featuredomain.Feature{},
		&featuredomain.CompanyFeature{},
		&featuredomain.FeatureUsageLog{},
		&authz.UserRole{},
		&contentdomain.Website{},
		&contentdomain.Page{},
		&contentdomain.Article{},
		&contentdomain.Collection{},
		&contentdomain.CollectionArticle{},
	)
}
