package scope

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/megahub-io/megahub/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Option func(*options)

type options struct {
	includeDeleted bool
}

// WithDeleted keeps soft-deleted rows in the result. Reserved for the
// platform staff surface.
func WithDeleted() Option {
	return func(o *options) { o.includeDeleted = true }
}

type ScoperParams struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Reg *Registry
}

// Scoper applies brand-path filters to queries over scoped tables. It is
// the single place multi-tenant isolation is enforced at read time.
type Scoper struct {
	db  *gorm.DB
	log *zap.Logger
	reg *Registry
}

func NewScoper(p ScoperParams) *Scoper {
	return &Scoper{
		db:  p.DB,
		log: p.Log.Named("scope.scoper"),
		reg: p.Reg,
	}
}

// For narrows q to rows reachable from the request's brand. Admin-bypass
// requests without a brand keep the soft-delete filters but skip the brand
// filter; everyone else without a brand scope is refused.
func (s *Scoper) For(ctx context.Context, kind string, q *gorm.DB, optFns ...Option) (*gorm.DB, error) {
	d, ok := s.reg.Get(kind)
	if !ok {
		return nil, ErrUnknownKind
	}

	rc, ok := tenant.FromContext(ctx)
	if !ok || rc.User == nil {
		return nil, ErrNoScope
	}

	opts := options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.includeDeleted && !rc.User.IsPlatform() {
		// Deleted rows are a staff-only view.
		opts.includeDeleted = false
	}

	if rc.Brand == nil {
		if !rc.IsAdminBypass {
			return nil, ErrNoScope
		}
		return s.apply(q, d, nil, opts), nil
	}

	brandID := rc.Brand.ID
	return s.apply(q, d, &brandID, opts), nil
}

// apply attaches the join chain, soft-delete filters and, when brandID is
// set, the brand filter itself.
func (s *Scoper) apply(q *gorm.DB, d Descriptor, brandID *snowflake.ID, opts options) *gorm.DB {
	if d.Edge != nil {
		return s.applyEdge(q, d, brandID, opts)
	}

	if !opts.includeDeleted && d.SoftDeleteColumn != "" {
		q = q.Where(fmt.Sprintf("%s.%s = ?", d.Table, d.SoftDeleteColumn), false)
	}

	prev := d.Table
	for _, hop := range d.Hops {
		join := fmt.Sprintf("JOIN %s ON %s.id = %s.%s", hop.Table, hop.Table, prev, hop.LocalColumn)
		if !opts.includeDeleted && hop.SoftDeleteColumn != "" {
			q = q.Joins(join+fmt.Sprintf(" AND %s.%s = ?", hop.Table, hop.SoftDeleteColumn), false)
		} else {
			q = q.Joins(join)
		}
		prev = hop.Table
	}

	if brandID != nil {
		q = q.Where(fmt.Sprintf("%s.%s = ?", d.brandTable(), d.BrandColumn), *brandID)
	}
	return q
}

// applyEdge scopes a join-table kind through an EXISTS against the target
// kind's own brand path.
func (s *Scoper) applyEdge(q *gorm.DB, d Descriptor, brandID *snowflake.ID, opts options) *gorm.DB {
	target, ok := s.reg.Get(d.Edge.TargetKind)
	if !ok || target.Edge != nil {
		s.log.Error("edge descriptor targets unknown or edge kind",
			zap.String("kind", d.Kind),
			zap.String("target", d.Edge.TargetKind),
		)
		// Unresolvable path: match nothing rather than leak.
		return q.Where("1 = 0")
	}

	var sb strings.Builder
	args := make([]any, 0, 4)

	fmt.Fprintf(&sb, "EXISTS (SELECT 1 FROM %s je JOIN %s ON %s.id = je.%s",
		d.Edge.JoinTable, target.Table, target.Table, d.Edge.RemoteColumn)
	if !opts.includeDeleted && target.SoftDeleteColumn != "" {
		fmt.Fprintf(&sb, " AND %s.%s = ?", target.Table, target.SoftDeleteColumn)
		args = append(args, false)
	}

	prev := target.Table
	for _, hop := range target.Hops {
		fmt.Fprintf(&sb, " JOIN %s ON %s.id = %s.%s", hop.Table, hop.Table, prev, hop.LocalColumn)
		if !opts.includeDeleted && hop.SoftDeleteColumn != "" {
			fmt.Fprintf(&sb, " AND %s.%s = ?", hop.Table, hop.SoftDeleteColumn)
			args = append(args, false)
		}
		prev = hop.Table
	}

	fmt.Fprintf(&sb, " WHERE je.%s = %s.id", d.Edge.LocalColumn, d.Table)
	if brandID != nil {
		fmt.Fprintf(&sb, " AND %s.%s = ?", target.brandTable(), target.BrandColumn)
		args = append(args, *brandID)
	}
	sb.WriteString(")")

	return q.Where(sb.String(), args...)
}

// BrandIDOf resolves the brand a single row belongs to, walking the same
// path the filters use. Edge kinds resolve through any one linked target.
func (s *Scoper) BrandIDOf(ctx context.Context, kind string, id snowflake.ID) (snowflake.ID, error) {
	d, ok := s.reg.Get(kind)
	if !ok {
		return 0, ErrUnknownKind
	}

	if d.Edge != nil {
		target, ok := s.reg.Get(d.Edge.TargetKind)
		if !ok || target.Edge != nil {
			return 0, ErrUnknownKind
		}
		var row struct {
			BrandID snowflake.ID `gorm:"column:brand_id"`
		}
		query := fmt.Sprintf(
			`SELECT %s.%s AS brand_id FROM %s je JOIN %s ON %s.id = je.%s%s WHERE je.%s = ? LIMIT 1`,
			target.brandTable(), target.BrandColumn,
			d.Edge.JoinTable, target.Table, target.Table, d.Edge.RemoteColumn,
			joinChainSQL(target), d.Edge.LocalColumn,
		)
		if err := s.db.WithContext(ctx).Raw(query, id).Scan(&row).Error; err != nil {
			return 0, err
		}
		return row.BrandID, nil
	}

	var row struct {
		BrandID snowflake.ID `gorm:"column:brand_id"`
	}
	query := fmt.Sprintf(
		`SELECT %s.%s AS brand_id FROM %s%s WHERE %s.id = ? LIMIT 1`,
		d.brandTable(), d.BrandColumn, d.Table, joinChainSQL(d), d.Table,
	)
	if err := s.db.WithContext(ctx).Raw(query, id).Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.BrandID, nil
}

// Belongs reports whether the row is visible under the request's scope.
func (s *Scoper) Belongs(ctx context.Context, kind string, id snowflake.ID) (bool, error) {
	d, ok := s.reg.Get(kind)
	if !ok {
		return false, ErrUnknownKind
	}

	q, err := s.For(ctx, kind, s.db.WithContext(ctx).Table(d.Table))
	if err != nil {
		return false, err
	}

	var count int64
	if err := q.Where(fmt.Sprintf("%s.id = ?", d.Table), id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AssertSameBrand refuses rows outside the request's scope. Out-of-scope
// and nonexistent rows fail identically.
func (s *Scoper) AssertSameBrand(ctx context.Context, kind string, id snowflake.ID) error {
	visible, err := s.Belongs(ctx, kind, id)
	if err != nil {
		return err
	}
	if !visible {
		return ErrNotVisible
	}
	return nil
}

func joinChainSQL(d Descriptor) string {
	var sb strings.Builder
	prev := d.Table
	for _, hop := range d.Hops {
		fmt.Fprintf(&sb, " JOIN %s ON %s.id = %s.%s", hop.Table, hop.Table, prev, hop.LocalColumn)
		prev = hop.Table
	}
	return sb.String()
}
