package elements

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/elementstore/internal/data/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
)

type gormQuery struct {
	repo   *gormRepo
	filter domain.Filter
}

func (q *gormQuery) ByID(id uuid.UUID) domain.DetailsQuery {
	return &gormQuery{repo: q.repo, filter: q.filter.WithID(id)}
}

func (q *gormQuery) ByName(name string) domain.DetailsQuery {
	return &gormQuery{repo: q.repo, filter: q.filter.WithName(name)}
}

func (q *gormQuery) IncludeDeleted() domain.DetailsQuery {
	return &gormQuery{repo: q.repo, filter: q.filter.WithDeleted()}
}

func (q *gormQuery) scope(ctx context.Context) *gorm.DB {
	db := q.repo.db.WithContext(ctx).Model(&Element{})
	if q.filter.IncludeDeleted {
		db = db.Unscoped()
	} else {
		db = db.Where("is_deleted = ?", false)
	}
	if q.filter.ID != nil {
		db = db.Where("id = ?", *q.filter.ID)
	}
	if q.filter.Name != nil {
		db = db.Where("name = ?", *q.filter.Name)
	}
	return db
}

func (q *gormQuery) find(ctx context.Context, limit int) ([]*domain.Element, error) {
	var rows []*Element
	db := q.scope(ctx).
		Preload("SubElements", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Element, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

func (q *gormQuery) First(ctx context.Context) (*domain.Element, error) {
	const op = "elements.first"
	var found []*domain.Element
	err := aggregates.Observe(q.repo.deps.Hooks, op, func() error {
		var err error
		found, err = q.find(ctx, 1)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, notFound(op, q.filter)
	}
	return found[0], nil
}

func (q *gormQuery) List(ctx context.Context) ([]*domain.Element, error) {
	var found []*domain.Element
	err := aggregates.Observe(q.repo.deps.Hooks, "elements.list", func() error {
		var err error
		found, err = q.find(ctx, 0)
		return err
	})
	return found, err
}

func (q *gormQuery) Count(ctx context.Context) (int64, error) {
	var count int64
	err := aggregates.Observe(q.repo.deps.Hooks, "elements.query_count", func() error {
		return q.scope(ctx).Count(&count).Error
	})
	return count, err
}
