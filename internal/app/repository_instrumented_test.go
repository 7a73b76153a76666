package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	elementrepo "github.com/yungbote/elementstore/internal/data/repos/elements"
	domain "github.com/yungbote/elementstore/internal/domain/elements"
)

func tracedRepo(t *testing.T) (domain.Repository, *tracetest.SpanRecorder) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return instrumentRepository(tp.Tracer("test"), elementrepo.NewRedisRepo(rdb, nil)), rec
}

func TestInstrumentRepositoryRecordsSpans(t *testing.T) {
	repo, rec := tracedRepo(t)
	ctx := context.Background()

	el, err := domain.NewWithID(uuid.New(), "n", "d")
	if err != nil {
		t.Fatalf("NewWithID: %v", err)
	}
	if _, err := repo.Insert(ctx, el); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	q, err := repo.WithDetails(ctx)
	if err != nil {
		t.Fatalf("WithDetails: %v", err)
	}
	if _, err := q.ByID(el.ID()).First(ctx); err != nil {
		t.Fatalf("First: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "elements.insert" || spans[1].Name() != "elements.query.first" {
		t.Fatalf("unexpected span names %q %q", spans[0].Name(), spans[1].Name())
	}
	var backend string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "db.backend" {
			backend = kv.Value.AsString()
		}
	}
	if backend != elementrepo.BackendDocument {
		t.Fatalf("db.backend = %q", backend)
	}
}

func TestInstrumentRepositoryMarksErrors(t *testing.T) {
	repo, rec := tracedRepo(t)
	err := repo.Delete(context.Background(), uuid.New())
	if err == nil {
		t.Fatalf("expected not found")
	}
	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	status := spans[0].Status()
	if status.Code != codes.Error || status.Description != "not_found" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestInstrumentRepositoryNilTracer(t *testing.T) {
	inner := elementrepo.NewRedisRepo(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}), nil)
	if got := instrumentRepository(nil, inner); got != inner {
		t.Fatalf("nil tracer should return the inner repository")
	}
}
