package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	alertdomain "github.com/megahub-io/megahub/internal/alert/domain"
	"github.com/megahub-io/megahub/internal/authz"
	branddomain "github.com/megahub-io/megahub/internal/brand/domain"
	companydomain "github.com/megahub-io/megahub/internal/company/domain"
	"github.com/megahub-io/megahub/internal/config"
	contentdomain "github.com/megahub-io/megahub/internal/content/domain"
	featuredomain "github.com/megahub-io/megahub/internal/feature/domain"
	identitydomain "github.com/megahub-io/megahub/internal/identity/domain"
	obsmetrics "github.com/megahub-io/megahub/internal/observability/metrics"
	obstracing "github.com/megahub-io/megahub/internal/observability/tracing"
	onboardingdomain "github.com/megahub-io/megahub/internal/onboarding/domain"
	slotsdomain "github.com/megahub-io/megahub/internal/slots/domain"
	"github.com/megahub-io/megahub/internal/tenant"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine        *gin.Engine
	cfg           *config.Config
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	resolver      *tenant.Resolver
	identitySvc   identitydomain.Service
	companySvc    companydomain.Service
	authzSvc      authz.Service
	brandSvc      branddomain.Service
	slotsSvc      slotsdomain.Service
	featureSvc    featuredomain.Service
	alertSvc      alertdomain.Service
	onboardingSvc onboardingdomain.Service
	contentSvc    contentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           *config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Resolver      *tenant.Resolver
	IdentitySvc   identitydomain.Service
	CompanySvc    companydomain.Service
	AuthzSvc      authz.Service
	BrandSvc      branddomain.Service
	SlotsSvc      slotsdomain.Service
	FeatureSvc    featuredomain.Service
	AlertSvc      alertdomain.Service
	OnboardingSvc onboardingdomain.Service
	ContentSvc    contentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("server"),
		genID:         p.GenID,
		resolver:      p.Resolver,
		identitySvc:   p.IdentitySvc,
		companySvc:    p.CompanySvc,
		authzSvc:      p.AuthzSvc,
		brandSvc:      p.BrandSvc,
		slotsSvc:      p.SlotsSvc,
		featureSvc:    p.FeatureSvc,
		alertSvc:      p.AlertSvc,
		onboardingSvc: p.OnboardingSvc,
		contentSvc:    p.ContentSvc,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()
	svc.registerStaffRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/users", s.RegisterUser)
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.AuthRequired())
	v1.Use(s.TenantContext())

	v1.GET("/me", s.Me)

	// -------- Onboarding --------
	v1.POST("/onboarding/business", s.CreateSoloBusiness)
	v1.GET("/onboarding/status", s.OnboardingStatus)
	v1.POST("/onboarding/fallback", s.OnboardingFallback)

	// -------- Brands --------
	v1.GET("/brands", s.ListBrands)
	v1.POST("/brands", s.Guard(authz.ActionWrite, authz.ObjectBrand, authz.PlatformSuperuser, authz.CompanyAdmin), s.CreateBrand)
	v1.GET("/brands/:id", s.GetBrand)
	v1.DELETE("/brands/:id", s.Guard(authz.ActionAdmin, authz.ObjectBrand, authz.PlatformSuperuser, authz.CompanyAdmin), s.DeleteBrand)
	v1.POST("/brands/:id/members", s.Guard(authz.ActionAdmin, authz.ObjectBrand, authz.PlatformSuperuser, authz.CompanyAdmin), s.AddBrandMember)
	v1.DELETE("/brands/:id/members/:userId", s.Guard(authz.ActionAdmin, authz.ObjectBrand, authz.PlatformSuperuser, authz.CompanyAdmin), s.RemoveBrandMember)
	v1.PUT("/brands/:id/admin", s.Guard(authz.ActionAdmin, authz.ObjectBrand, authz.PlatformSuperuser, authz.CompanyAdmin), s.SetBrandAdmin)

	// -------- Slots --------
	v1.GET("/slots", s.Guard(authz.ActionRead, authz.ObjectSlots, authz.PlatformStaff, authz.CompanyAdmin), s.GetSlotsUsage)
	v1.GET("/slots/capacity/:kind", s.Guard(authz.ActionRead, authz.ObjectSlots, authz.PlatformStaff, authz.CompanyAdmin), s.AssertSlotCapacity)

	// -------- Features --------
	v1.GET("/features", s.ListActiveFeatures)
	v1.GET("/features/:key/usage", s.FeatureUsage)
	v1.POST("/features/:key/consume", s.ConsumeFeature)

	// -------- Alerts --------
	v1.GET("/alerts", s.Guard(authz.ActionRead, authz.ObjectAlert, authz.PlatformStaff, authz.CompanyAdmin), s.ListAlerts)
	v1.POST("/alerts/:id/dismiss", s.Guard(authz.ActionWrite, authz.ObjectAlert, authz.PlatformStaff, authz.CompanyAdmin), s.DismissAlert)

	// -------- Content --------
	// One policy dispatched on the action: reads for any signed-in user,
	// writes for superusers, company admins and brand-scoped members.
	contentPolicy := authz.ByAction(map[authz.Action]authz.Predicate{
		authz.ActionRead:  authz.ReadOnly,
		authz.ActionWrite: authz.AnyOf(authz.PlatformSuperuser, authz.CompanyAdmin, authz.BrandScoped),
	})
	v1.GET("/websites", s.Guard(authz.ActionRead, authz.ObjectContent, contentPolicy), s.ListWebsites)
	v1.POST("/websites", s.Guard(authz.ActionWrite, authz.ObjectContent, contentPolicy), s.CreateWebsite)
	v1.GET("/pages", s.Guard(authz.ActionRead, authz.ObjectContent, contentPolicy), s.ListPages)
	v1.POST("/pages", s.Guard(authz.ActionWrite, authz.ObjectContent, contentPolicy), s.CreatePage)
	v1.GET("/articles", s.Guard(authz.ActionRead, authz.ObjectContent, contentPolicy), s.ListArticles)
	v1.GET("/articles/:id", s.Guard(authz.ActionRead, authz.ObjectContent, contentPolicy), s.GetArticle)
	v1.POST("/articles", s.Guard(authz.ActionWrite, authz.ObjectContent, contentPolicy), s.CreateArticle)
	v1.DELETE("/articles/:id", s.Guard(authz.ActionWrite, authz.ObjectContent, contentPolicy), s.DeleteArticle)
	v1.GET("/collections", s.Guard(authz.ActionRead, authz.ObjectContent, contentPolicy), s.ListCollections)
	v1.POST("/collections", s.Guard(authz.ActionWrite, authz.ObjectContent, contentPolicy), s.CreateCollection)
	v1.POST("/collections/:id/articles", s.Guard(authz.ActionWrite, authz.ObjectContent, contentPolicy), s.AddToCollection)
}

// registerStaffRoutes carries the operations surface: limit management,
// feature grants, reconciliation. Casbin gates these by named role.
func (s *Server) registerStaffRoutes() {
	staff := s.engine.Group("/v1/staff")
	staff.Use(s.AuthRequired())
	staff.Use(s.TenantContext())
	staff.Use(s.Guard(authz.ActionAdmin, authz.ObjectSlots, authz.PlatformStaff))

	staff.GET("/companies/:companyId/slots", s.StaffGetSlots)
	staff.PATCH("/companies/:companyId/slots", s.RequireRole(authz.ObjectSlots, authz.ActionManage), s.StaffSetSlotLimits)
	staff.POST("/companies/:companyId/slots/reconcile", s.RequireRole(authz.ObjectSlots, authz.ActionManage), s.StaffReconcileSlots)

	staff.GET("/features", s.StaffListFeatureCatalog)
	staff.POST("/companies/:companyId/features", s.RequireRole(authz.ObjectFeature, authz.ActionManage), s.StaffGrantFeature)
	staff.DELETE("/companies/:companyId/features/:key", s.RequireRole(authz.ObjectFeature, authz.ActionManage), s.StaffRevokeFeature)

	staff.POST("/users/:userId/onboarding", s.RequireRole(authz.ObjectOnboarding, authz.ActionManage), s.StaffTriggerOnboarding)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg *config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
