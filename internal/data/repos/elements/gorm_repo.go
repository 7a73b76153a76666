package elements

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/elementstore/internal/data/aggregates"
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/dbctx"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

const BackendRelational = "relational"

type gormRepo struct {
	db   *gorm.DB
	log  *logger.Logger
	deps aggregates.BaseDeps
	opts options
}

// NewGormRepo returns the relational adapter. Every write runs in one
// transaction; InsertMany commits the whole batch or nothing.
func NewGormRepo(db *gorm.DB, baseLog *logger.Logger, opts ...Option) domain.Repository {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	o := buildOptions(opts)
	repoLog := baseLog.With("repo", "ElementRepo", "backend", BackendRelational)
	return &gormRepo{
		db:  db,
		log: repoLog,
		deps: aggregates.BaseDeps{
			DB:     db,
			Log:    repoLog,
			Runner: o.runner,
			Hooks:  o.hooks,
		}.WithDefaults(),
		opts: o,
	}
}

func (r *gormRepo) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:       "elements",
		Backend:    BackendRelational,
		TxBehavior: domainagg.TxEnabled,
		Notes:      "elements and sub elements share one transaction per write; batches are all-or-nothing",
	}
}

func (r *gormRepo) GetCount(ctx context.Context) (int64, error) {
	var count int64
	err := aggregates.Observe(r.deps.Hooks, "elements.count", func() error {
		return r.db.WithContext(ctx).
			Model(&Element{}).
			Where("is_deleted = ?", false).
			Count(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *gormRepo) Insert(ctx context.Context, el *domain.Element) (*domain.Element, error) {
	const op = "elements.insert"
	if err := domain.ValidateForWrite(op, el); err != nil {
		return nil, err
	}
	r.fillCreated(ctx, el)
	err := aggregates.ExecuteWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		return r.insertRow(dbc, op, el)
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("element inserted", "id", el.ID(), "sub_elements", el.Len())
	return el, nil
}

func (r *gormRepo) InsertMany(ctx context.Context, els []*domain.Element) error {
	const op = "elements.insert_many"
	for _, el := range els {
		if err := domain.ValidateForWrite(op, el); err != nil {
			return err
		}
	}
	if len(els) == 0 {
		return nil
	}
	for _, el := range els {
		r.fillCreated(ctx, el)
	}
	err := aggregates.ExecuteWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		for _, el := range els {
			if err := r.insertRow(dbc, op, el); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Debug("elements inserted", "count", len(els))
	return nil
}

func (r *gormRepo) insertRow(dbc dbctx.Context, op string, el *domain.Element) error {
	tx := dbc.DB(r.db)
	row := toRow(el)
	subs := row.SubElements
	row.SubElements = nil
	if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
		if isDuplicate(op, err) {
			return domainagg.NewError(domainagg.CodeDuplicateIdentity, op, duplicateMessage(el.ID()), err)
		}
		return err
	}
	if len(subs) > 0 {
		if err := tx.Create(&subs).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *gormRepo) WithDetails(ctx context.Context) (domain.DetailsQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &gormQuery{repo: r}, nil
}

func (r *gormRepo) Update(ctx context.Context, el *domain.Element) (*domain.Element, error) {
	const op = "elements.update"
	if err := domain.ValidateForWrite(op, el); err != nil {
		return nil, err
	}
	prev := el.Audit()
	r.opts.stamper.Modified(ctx, el)
	nextStamp := domain.NewConcurrencyStamp()
	err := aggregates.ExecuteWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		tx := dbc.DB(r.db)
		if err := r.requireLive(tx, op, el.ID()); err != nil {
			return err
		}
		a := el.Audit()
		updates := map[string]any{
			"name":              el.Name(),
			"description":       el.Description(),
			"extra_properties":  extraColumn(el),
			"concurrency_stamp": nextStamp,
			"modified_at":       a.ModifiedAt,
			"modified_by":       a.ModifiedBy,
		}
		ok, err := r.deps.CASGuard.UpdateByStamp(dbc, &Element{}, el.ID(), el.ConcurrencyStamp(), updates)
		if err != nil {
			return err
		}
		if err := aggregates.RequireCASSuccess(ok, "element was modified concurrently: "+el.ID().String()); err != nil {
			return err
		}
		if err := tx.Where("element_id = ?", el.ID()).Delete(&SubElement{}).Error; err != nil {
			return err
		}
		if subs := toSubRows(el.ID(), el.SubElements()); len(subs) > 0 {
			if err := tx.Create(&subs).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		el.ResetAudit(prev)
		return nil, err
	}
	el.SetConcurrencyStamp(nextStamp)
	return el, nil
}

func (r *gormRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "elements.delete"
	if id == uuid.Nil {
		return domainagg.InvalidArgument(op, "id", "is required")
	}
	return aggregates.ExecuteWrite(ctx, r.deps, op, func(dbc dbctx.Context) error {
		tx := dbc.DB(r.db)
		var row Element
		if err := tx.Where("id = ? AND is_deleted = ?", id, false).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainagg.NotFound(op, id)
			}
			return err
		}
		el := toDomain(&row)
		r.opts.stamper.Deleted(ctx, el)
		a := el.Audit()
		ok, err := r.deps.CASGuard.UpdateByStamp(dbc, &Element{}, id, row.ConcurrencyStamp, map[string]any{
			"is_deleted":        true,
			"deleted_at":        a.DeletedAt,
			"deleted_by":        a.DeletedBy,
			"concurrency_stamp": domain.NewConcurrencyStamp(),
		})
		if err != nil {
			return err
		}
		return aggregates.RequireCASSuccess(ok, "element was modified concurrently: "+id.String())
	})
}

func (r *gormRepo) requireLive(tx *gorm.DB, op string, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&Element{}).Where("id = ? AND is_deleted = ?", id, false).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domainagg.NotFound(op, id)
	}
	return nil
}

func (r *gormRepo) fillCreated(ctx context.Context, el *domain.Element) {
	if el.Audit().CreatedAt.IsZero() {
		r.opts.stamper.Created(ctx, el)
	}
}

func extraColumn(el *domain.Element) any {
	props := el.Properties()
	if len(props) == 0 {
		return nil
	}
	return datatypes.JSONMap(props)
}

func isDuplicate(op string, err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		domainagg.IsCode(aggregates.MapError(op, err), domainagg.CodeDuplicateIdentity)
}

func duplicateMessage(id uuid.UUID) string {
	return "element already exists with id: " + id.String()
}
