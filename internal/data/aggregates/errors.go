package aggregates

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	"gorm.io/gorm"
)

var (
	// ErrConflict indicates a stale concurrency stamp.
	ErrConflict = errors.New("aggregate conflict")
	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// UnavailableError tags an error as a store availability failure.
func UnavailableError(msg string, cause error) error {
	if cause == nil {
		return errors.Join(ErrUnavailable, errors.New(strings.TrimSpace(msg)))
	}
	return errors.Join(ErrUnavailable, errors.New(strings.TrimSpace(msg)), cause)
}

// MapError maps infrastructure failures into aggregate error codes. Aggregate
// errors and context cancellation pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrUnavailable):
		return domainagg.Wrap(domainagg.CodeStoreUnavailable, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.Wrap(domainagg.CodeDuplicateIdentity, op, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return domainagg.Wrap(domainagg.CodeStoreUnavailable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23505":
			return domainagg.Wrap(domainagg.CodeDuplicateIdentity, op, err) // unique_violation
		case code == "40001", code == "40P01":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // serialization/deadlock
		case strings.HasPrefix(code, "08"), code == "57P01", code == "57P03":
			return domainagg.Wrap(domainagg.CodeStoreUnavailable, op, err) // connection_exception/admin_shutdown/cannot_connect_now
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return domainagg.Wrap(domainagg.CodeStoreUnavailable, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainagg.Wrap(domainagg.CodeStoreUnavailable, op, err)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeDuplicateIdentity, op, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "unable to open database"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "client is closed"):
		return domainagg.Wrap(domainagg.CodeStoreUnavailable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// IsAlreadyExists reports DDL failures caused by an object another migrator
// created first.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P07", "42710", "42701": // duplicate_table/duplicate_object/duplicate_column
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}
