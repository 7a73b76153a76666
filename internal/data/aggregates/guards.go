package aggregates

import (
	"strings"

	"github.com/google/uuid"
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	"github.com/yungbote/elementstore/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard provides optimistic/concurrency guard helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, domainagg.NewError(domainagg.CodeInternal, "aggregate.cas", "missing db transaction context", nil)
}

// UpdateByStamp updates the row of model only when id and concurrency stamp
// both match. model selects the table through the connection's naming
// strategy.
func (g CASGuard) UpdateByStamp(dbc dbctx.Context, model any, id uuid.UUID, expectedStamp string, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	if model == nil || id == uuid.Nil {
		return false, domainagg.InvalidArgument("aggregate.cas", "model and id", "are required for UpdateByStamp")
	}
	res := db.Model(model).
		Where("id = ? AND concurrency_stamp = ?", id, strings.TrimSpace(expectedStamp)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireStampMatch validates stamp equality for stores that compare in memory.
func RequireStampMatch(current, expected string) error {
	if current != expected {
		return ConflictError("concurrency stamp mismatch")
	}
	return nil
}
