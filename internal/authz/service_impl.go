package authz

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obsmetrics "github.com/megahub-io/megahub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCompany    = "company"
	ObjectBrand      = "brand"
	ObjectSlots      = "slots"
	ObjectFeature    = "feature"
	ObjectAlert      = "alert"
	ObjectOnboarding = "onboarding"
	ObjectContent    = "content"
	ObjectUser       = "user"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionManage = "manage"
)

const (
	RoleMember       = "role:member"
	RoleBrandAdmin   = "role:brand_admin"
	RoleCompanyAdmin = "role:company_admin"
	RoleStaff        = "role:staff"
	RoleSuperuser    = "role:superuser"
)

// Service resolves named roles and enforces object-level policy. Structural
// rules live in the predicate chain; this covers the grants that survive
// restarts.
type Service interface {
	Authorize(ctx context.Context, actor, companyID, object, action string) error
	GrantRole(ctx context.Context, assignment *UserRole) error
	RevokeRole(ctx context.Context, userID snowflake.ID, role string, companyID *snowflake.ID) error
	RolesForUser(ctx context.Context, userID, companyID snowflake.ID) ([]string, error)
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Enforcer *casbin.SyncedEnforcer
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	enforcer *casbin.SyncedEnforcer
	metrics  *obsmetrics.Metrics
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authz.service"),
		genID:    p.GenID,
		enforcer: p.Enforcer,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, companyID, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return ErrInvalidCompany
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, companyID)
	if err != nil {
		s.metrics.RecordAuthzDecision(ctx, "denied")
		return err
	}

	domain := fmt.Sprintf("company:%s", companyID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.metrics.RecordAuthzDecision(ctx, "denied")
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}

	s.metrics.RecordAuthzDecision(ctx, "allowed")
	return nil
}

func (s *ServiceImpl) GrantRole(ctx context.Context, assignment *UserRole) error {
	if assignment.UserID == 0 || strings.TrimSpace(assignment.Role) == "" {
		return ErrInvalidActor
	}
	if assignment.ID == 0 {
		assignment.ID = s.genID.Generate()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(assignment).Error
}

func (s *ServiceImpl) RevokeRole(ctx context.Context, userID snowflake.ID, role string, companyID *snowflake.ID) error {
	stmt := s.db.WithContext(ctx).Where("user_id = ? AND role = ?", userID, role)
	if companyID != nil {
		stmt = stmt.Where("company_id = ?", *companyID)
	}
	if err := stmt.Delete(&UserRole{}).Error; err != nil {
		return err
	}

	subject := fmt.Sprintf("user:%s", userID.String())
	roleName := fmt.Sprintf("role:%s", strings.TrimPrefix(role, "role:"))
	if companyID != nil {
		_, _ = s.enforcer.RemoveGroupingPolicy(subject, roleName, fmt.Sprintf("company:%s", companyID.String()))
	}
	return nil
}

func (s *ServiceImpl) RolesForUser(ctx context.Context, userID, companyID snowflake.ID) ([]string, error) {
	var rows []UserRole
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	roles := make([]string, 0, len(rows))
	for i := range rows {
		if rows[i].Live(now) && rows[i].AppliesTo(companyID) {
			roles = append(roles, rows[i].Role)
		}
	}
	return roles, nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor, companyID string) (string, string, error) {
	if actor == "system" {
		return actor, RoleStaff, nil
	}
	if !strings.HasPrefix(actor, "user:") {
		return "", "", ErrInvalidActor
	}

	userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
	if err != nil || userID == 0 {
		return "", "", ErrInvalidActor
	}

	// "platform" is the shared domain for staff acting outside any company.
	parsedCompanyID := snowflake.ID(0)
	if companyID != "platform" {
		parsedCompanyID, err = snowflake.ParseString(companyID)
		if err != nil || parsedCompanyID == 0 {
			return "", "", ErrInvalidCompany
		}
	}

	role, err := s.roleForUser(ctx, parsedCompanyID, userID)
	if err != nil {
		return "", "", err
	}
	return actor, role, nil
}

// roleForUser picks the strongest live assignment, falling back to the
// user's kind when no row exists.
func (s *ServiceImpl) roleForUser(ctx context.Context, companyID, userID snowflake.ID) (string, error) {
	roles, err := s.RolesForUser(ctx, userID, companyID)
	if err != nil {
		return "", err
	}
	if len(roles) > 0 {
		return strongestRole(roles), nil
	}

	var row struct {
		Kind string `gorm:"column:kind"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT kind FROM users WHERE id = ? LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	switch strings.TrimSpace(row.Kind) {
	case "platform_superuser":
		return RoleSuperuser, nil
	case "platform_staff":
		return RoleStaff, nil
	case "company_admin":
		return RoleCompanyAdmin, nil
	case "brand_member":
		return RoleMember, nil
	default:
		return "", ErrForbidden
	}
}

func strongestRole(roles []string) string {
	rank := map[string]int{
		RoleSuperuser:    5,
		RoleStaff:        4,
		RoleCompanyAdmin: 3,
		RoleBrandAdmin:   2,
		RoleMember:       1,
	}
	best := roles[0]
	for _, role := range roles[1:] {
		if rank[normalizeRole(role)] > rank[normalizeRole(best)] {
			best = role
		}
	}
	return normalizeRole(best)
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if !strings.HasPrefix(role, "role:") {
		role = "role:" + role
	}
	return role
}

func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members read their own brand's surface.
		{RoleMember, "*", ObjectBrand, ActionView},
		{RoleMember, "*", ObjectContent, ActionView},
		{RoleMember, "*", ObjectContent, ActionCreate},
		{RoleMember, "*", ObjectContent, ActionUpdate},
		{RoleMember, "*", ObjectFeature, ActionView},

		// Brand admins additionally manage their brand's content.
		{RoleBrandAdmin, "*", ObjectBrand, ActionView},
		{RoleBrandAdmin, "*", ObjectContent, ActionView},
		{RoleBrandAdmin, "*", ObjectContent, ActionCreate},
		{RoleBrandAdmin, "*", ObjectContent, ActionUpdate},
		{RoleBrandAdmin, "*", ObjectContent, ActionDelete},
		{RoleBrandAdmin, "*", ObjectFeature, ActionView},

		// Company admins run the whole company.
		{RoleCompanyAdmin, "*", ObjectCompany, ActionView},
		{RoleCompanyAdmin, "*", ObjectCompany, ActionUpdate},
		{RoleCompanyAdmin, "*", ObjectBrand, ActionView},
		{RoleCompanyAdmin, "*", ObjectBrand, ActionCreate},
		{RoleCompanyAdmin, "*", ObjectBrand, ActionUpdate},
		{RoleCompanyAdmin, "*", ObjectBrand, ActionDelete},
		{RoleCompanyAdmin, "*", ObjectSlots, ActionView},
		{RoleCompanyAdmin, "*", ObjectFeature, ActionView},
		{RoleCompanyAdmin, "*", ObjectAlert, ActionView},
		{RoleCompanyAdmin, "*", ObjectAlert, ActionManage},
		{RoleCompanyAdmin, "*", ObjectContent, ActionView},
		{RoleCompanyAdmin, "*", ObjectContent, ActionCreate},
		{RoleCompanyAdmin, "*", ObjectContent, ActionUpdate},
		{RoleCompanyAdmin, "*", ObjectContent, ActionDelete},
		{RoleCompanyAdmin, "*", ObjectUser, ActionView},
		{RoleCompanyAdmin, "*", ObjectUser, ActionCreate},

		// Staff see and operate everything except destructive company ops.
		{RoleStaff, "*", ObjectCompany, ActionView},
		{RoleStaff, "*", ObjectBrand, ActionView},
		{RoleStaff, "*", ObjectSlots, ActionView},
		{RoleStaff, "*", ObjectSlots, ActionManage},
		{RoleStaff, "*", ObjectFeature, ActionView},
		{RoleStaff, "*", ObjectFeature, ActionManage},
		{RoleStaff, "*", ObjectAlert, ActionView},
		{RoleStaff, "*", ObjectAlert, ActionManage},
		{RoleStaff, "*", ObjectContent, ActionView},
		{RoleStaff, "*", ObjectUser, ActionView},
		{RoleStaff, "*", ObjectOnboarding, ActionManage},

		// Superusers get the staff surface plus destructive ops.
		{RoleSuperuser, "*", ObjectCompany, ActionView},
		{RoleSuperuser, "*", ObjectCompany, ActionUpdate},
		{RoleSuperuser, "*", ObjectCompany, ActionDelete},
		{RoleSuperuser, "*", ObjectBrand, ActionView},
		{RoleSuperuser, "*", ObjectBrand, ActionDelete},
		{RoleSuperuser, "*", ObjectSlots, ActionView},
		{RoleSuperuser, "*", ObjectSlots, ActionManage},
		{RoleSuperuser, "*", ObjectFeature, ActionView},
		{RoleSuperuser, "*", ObjectFeature, ActionManage},
		{RoleSuperuser, "*", ObjectAlert, ActionView},
		{RoleSuperuser, "*", ObjectAlert, ActionManage},
		{RoleSuperuser, "*", ObjectContent, ActionView},
		{RoleSuperuser, "*", ObjectContent, ActionDelete},
		{RoleSuperuser, "*", ObjectUser, ActionView},
		{RoleSuperuser, "*", ObjectUser, ActionCreate},
		{RoleSuperuser, "*", ObjectUser, ActionUpdate},
		{RoleSuperuser, "*", ObjectOnboarding, ActionManage},
	}

	for _, policy := range policies {
		if len(policy) < 4 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
