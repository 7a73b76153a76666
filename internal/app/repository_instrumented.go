package app

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
)

type instrumentedRepository struct {
	backend string
	inner   domain.Repository
	tracer  trace.Tracer
}

func instrumentRepository(tracer trace.Tracer, inner domain.Repository) domain.Repository {
	if inner == nil || tracer == nil {
		return inner
	}
	return &instrumentedRepository{
		backend: inner.Contract().Backend,
		inner:   inner,
		tracer:  tracer,
	}
}

func (r *instrumentedRepository) Contract() domainagg.Contract { return r.inner.Contract() }

func (r *instrumentedRepository) GetCount(ctx context.Context) (int64, error) {
	ctx, span := r.start(ctx, "elements.count")
	n, err := r.inner.GetCount(ctx)
	span.SetAttributes(attribute.Int64("elements.count", n))
	end(span, err)
	return n, err
}

func (r *instrumentedRepository) Insert(ctx context.Context, el *domain.Element) (*domain.Element, error) {
	ctx, span := r.start(ctx, "elements.insert", elementAttrs(el)...)
	out, err := r.inner.Insert(ctx, el)
	end(span, err)
	return out, err
}

func (r *instrumentedRepository) InsertMany(ctx context.Context, els []*domain.Element) error {
	ctx, span := r.start(ctx, "elements.insert_many", attribute.Int("elements.batch_size", len(els)))
	err := r.inner.InsertMany(ctx, els)
	end(span, err)
	return err
}

func (r *instrumentedRepository) WithDetails(ctx context.Context) (domain.DetailsQuery, error) {
	q, err := r.inner.WithDetails(ctx)
	if err != nil {
		return nil, err
	}
	return &instrumentedQuery{repo: r, inner: q}, nil
}

func (r *instrumentedRepository) Update(ctx context.Context, el *domain.Element) (*domain.Element, error) {
	ctx, span := r.start(ctx, "elements.update", elementAttrs(el)...)
	out, err := r.inner.Update(ctx, el)
	end(span, err)
	return out, err
}

func (r *instrumentedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := r.start(ctx, "elements.delete", attribute.String("element.id", id.String()))
	err := r.inner.Delete(ctx, id)
	end(span, err)
	return err
}

func (r *instrumentedRepository) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.backend", r.backend),
		attribute.String("tenant", scopeLabel(ctxutil.Tenant(ctx))),
	)
	return r.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

type instrumentedQuery struct {
	repo  *instrumentedRepository
	inner domain.DetailsQuery
}

func (q *instrumentedQuery) ByID(id uuid.UUID) domain.DetailsQuery {
	return &instrumentedQuery{repo: q.repo, inner: q.inner.ByID(id)}
}

func (q *instrumentedQuery) ByName(name string) domain.DetailsQuery {
	return &instrumentedQuery{repo: q.repo, inner: q.inner.ByName(name)}
}

func (q *instrumentedQuery) IncludeDeleted() domain.DetailsQuery {
	return &instrumentedQuery{repo: q.repo, inner: q.inner.IncludeDeleted()}
}

func (q *instrumentedQuery) First(ctx context.Context) (*domain.Element, error) {
	ctx, span := q.repo.start(ctx, "elements.query.first")
	el, err := q.inner.First(ctx)
	end(span, err)
	return el, err
}

func (q *instrumentedQuery) List(ctx context.Context) ([]*domain.Element, error) {
	ctx, span := q.repo.start(ctx, "elements.query.list")
	els, err := q.inner.List(ctx)
	span.SetAttributes(attribute.Int("elements.returned", len(els)))
	end(span, err)
	return els, err
}

func (q *instrumentedQuery) Count(ctx context.Context) (int64, error) {
	ctx, span := q.repo.start(ctx, "elements.query.count")
	n, err := q.inner.Count(ctx)
	end(span, err)
	return n, err
}

func elementAttrs(el *domain.Element) []attribute.KeyValue {
	if el == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String("element.id", el.ID().String()),
		attribute.Int("element.sub_elements", el.Len()),
	}
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		desc := string(domainagg.CodeOf(err))
		if desc == "" {
			desc = err.Error()
		}
		span.SetStatus(codes.Error, desc)
	}
	span.End()
}

func scopeLabel(scope string) string {
	if scope == ctxutil.HostScope {
		return "host"
	}
	return scope
}
