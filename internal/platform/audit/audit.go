// Package audit stamps creation, modification and deletion metadata onto
// aggregates. Aggregates only reserve the fields; this package decides the
// clock and the actor.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/elementstore/internal/platform/ctxutil"
)

// Auditable is implemented by aggregates that carry an audit record.
// Implementations ignore stamps on a nil receiver; the Stamper itself only
// guards against an untyped nil.
type Auditable interface {
	StampCreated(at time.Time, by *uuid.UUID)
	StampModified(at time.Time, by *uuid.UUID)
	StampDeleted(at time.Time, by *uuid.UUID)
}

// Stamper applies audit metadata using its clock and the actor in ctx.
type Stamper struct {
	Now func() time.Time
}

func NewStamper() Stamper {
	return Stamper{Now: func() time.Time { return time.Now().UTC() }}
}

func (s Stamper) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func actor(ctx context.Context) *uuid.UUID {
	id, ok := ctxutil.Actor(ctx)
	if !ok {
		return nil
	}
	return &id
}

func (s Stamper) Created(ctx context.Context, a Auditable) {
	if a == nil {
		return
	}
	a.StampCreated(s.now(), actor(ctx))
}

func (s Stamper) Modified(ctx context.Context, a Auditable) {
	if a == nil {
		return
	}
	a.StampModified(s.now(), actor(ctx))
}

func (s Stamper) Deleted(ctx context.Context, a Auditable) {
	if a == nil {
		return
	}
	a.StampDeleted(s.now(), actor(ctx))
}
