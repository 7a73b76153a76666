package elements

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/elementstore/internal/data/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
)

type redisQuery struct {
	repo   *redisRepo
	filter domain.Filter
}

func (q *redisQuery) ByID(id uuid.UUID) domain.DetailsQuery {
	return &redisQuery{repo: q.repo, filter: q.filter.WithID(id)}
}

func (q *redisQuery) ByName(name string) domain.DetailsQuery {
	return &redisQuery{repo: q.repo, filter: q.filter.WithName(name)}
}

func (q *redisQuery) IncludeDeleted() domain.DetailsQuery {
	return &redisQuery{repo: q.repo, filter: q.filter.WithDeleted()}
}

// find scans the collection client-side; a lookup by id reads one field.
func (q *redisQuery) find(ctx context.Context) ([]*domain.Element, error) {
	var candidates []*domain.Element
	if q.filter.ID != nil {
		el, err := q.repo.load(ctx, *q.filter.ID)
		if err != nil {
			return nil, err
		}
		if el != nil {
			candidates = append(candidates, el)
		}
	} else {
		all, err := q.repo.loadAll(ctx)
		if err != nil {
			return nil, err
		}
		candidates = all
	}
	out := candidates[:0]
	for _, el := range candidates {
		if q.filter.Matches(el) {
			out = append(out, el)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Audit().CreatedAt, out[j].Audit().CreatedAt
		if !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}

func (q *redisQuery) First(ctx context.Context) (*domain.Element, error) {
	const op = "elements.first"
	var found []*domain.Element
	err := aggregates.Observe(q.repo.hooks, op, func() error {
		var err error
		found, err = q.find(ctx)
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

func (q *redisQuery) List(ctx context.Context) ([]*domain.Element, error) {
	var found []*domain.Element
	err := aggregates.Observe(q.repo.hooks, "elements.list", func() error {
		var err error
		found, err = q.find(ctx)
		return err
	})
	return found, err
}

func (q *redisQuery) Count(ctx context.Context) (int64, error) {
	return q.count(ctx, "elements.query_count")
}

func (q *redisQuery) count(ctx context.Context, op string) (int64, error) {
	var n int64
	err := aggregates.Observe(q.repo.hooks, op, func() error {
		found, err := q.find(ctx)
		if err != nil {
			return err
		}
		n = int64(len(found))
		return nil
	})
	return n, err
}
