package elements

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/elementstore/internal/domain/aggregates"
)

// Repository is the storage-agnostic contract. Every backend must behave the
// same way for each operation:
//
//   - GetCount counts non-deleted elements.
//   - Insert fails with CodeDuplicateIdentity when the id is already stored,
//     deleted or not.
//   - InsertMany inserts each element atomically; whether the batch as a whole
//     is atomic is reported by Contract().SupportsBatchAtomicity.
//   - WithDetails returns a query whose results always carry their
//     SubElements.
//   - Update and Delete fail with CodeNotFound when no live element has the id.
//     Update fails with CodeConflict when the element's concurrency stamp is
//     stale.
type Repository interface {
	aggregates.Aggregate

	GetCount(ctx context.Context) (int64, error)
	Insert(ctx context.Context, el *Element) (*Element, error)
	InsertMany(ctx context.Context, els []*Element) error
	WithDetails(ctx context.Context) (DetailsQuery, error)
	Update(ctx context.Context, el *Element) (*Element, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DetailsQuery filters elements with their SubElements eagerly loaded.
// Builder methods return a new query and never mutate the receiver.
type DetailsQuery interface {
	ByID(id uuid.UUID) DetailsQuery
	ByName(name string) DetailsQuery
	IncludeDeleted() DetailsQuery

	// Results are ordered by creation time, then id. First returns the first
	// match or CodeNotFound.
	First(ctx context.Context) (*Element, error)
	List(ctx context.Context) ([]*Element, error)
	Count(ctx context.Context) (int64, error)
}

// SchemaMigrator brings a backend's schema up to date. Implementations are
// idempotent and safe to call from several instances at once.
type SchemaMigrator interface {
	Migrate(ctx context.Context) error
}

// Filter is the backend-neutral description of a DetailsQuery.
type Filter struct {
	ID             *uuid.UUID
	Name           *string
	IncludeDeleted bool
}

func (f Filter) WithID(id uuid.UUID) Filter {
	f.ID = &id
	return f
}

func (f Filter) WithName(name string) Filter {
	f.Name = &name
	return f
}

func (f Filter) WithDeleted() Filter {
	f.IncludeDeleted = true
	return f
}

// Matches evaluates the filter against an element in memory.
func (f Filter) Matches(el *Element) bool {
	if el == nil {
		return false
	}
	if !f.IncludeDeleted && el.audit.IsDeleted {
		return false
	}
	if f.ID != nil && el.id != *f.ID {
		return false
	}
	if f.Name != nil && el.name != *f.Name {
		return false
	}
	return true
}

// ValidateForWrite is the local precondition every adapter runs before
// touching its store.
func ValidateForWrite(op string, el *Element) error {
	if el == nil {
		return aggregates.InvalidArgument(op, "element", "is required")
	}
	if el.id == uuid.Nil {
		return aggregates.InvalidArgument(op, "element id", "is required")
	}
	return nil
}
