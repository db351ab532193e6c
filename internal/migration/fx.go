package migration

import (
	"github.com/megahub-io/megahub/internal/config"
	"github.com/megahub-io/megahub/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg *config.Config) error {
		// SQL migrations only target the postgres deployment; the other
		// dialects are local scratch databases and AutoMigrate instead.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := autoMigrate(conn); err != nil {
			return err
		}

		if err := seed.EnsurePlatformSuperuser(conn); err != nil {
			return err
		}
		return seed.EnsureFeatureCatalog(conn)
	}),
)
