package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/alert"
	"github.com/megahub-io/megahub/internal/authz"
	"github.com/megahub-io/megahub/internal/brand"
	"github.com/megahub-io/megahub/internal/clock"
	"github.com/megahub-io/megahub/internal/company"
	"github.com/megahub-io/megahub/internal/config"
	"github.com/megahub-io/megahub/internal/content"
	"github.com/megahub-io/megahub/internal/feature"
	"github.com/megahub-io/megahub/internal/identity"
	"github.com/megahub-io/megahub/internal/logger"
	"github.com/megahub-io/megahub/internal/migration"
	"github.com/megahub-io/megahub/internal/observability"
	"github.com/megahub-io/megahub/internal/onboarding"
	"github.com/megahub-io/megahub/internal/reconciler"
	"github.com/megahub-io/megahub/internal/scope"
	"github.com/megahub-io/megahub/internal/server"
	"github.com/megahub-io/megahub/internal/slots"
	"github.com/megahub-io/megahub/internal/tenant"
	"github.com/megahub-io/megahub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Kernel domains
		identity.Module,
		company.Module,
		brand.Module,
		slots.Module,
		alert.Module,
		feature.Module,
		tenant.Module,
		authz.Module,
		scope.Module,
		content.Module,
		onboarding.Module,
		reconciler.Module,

		// HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
