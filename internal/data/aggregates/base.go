package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	domainagg "github.com/yungbote/elementstore/internal/domain/aggregates"
	"github.com/yungbote/elementstore/internal/platform/dbctx"
	"github.com/yungbote/elementstore/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

// WithDefaults fills the runner, hooks and guard from DB. Without a DB the
// runner falls back to DirectRunner.
func (d BaseDeps) WithDefaults() BaseDeps {
	if d.Runner == nil {
		if d.DB != nil {
			d.Runner = NewGormTxRunner(d.DB)
		} else {
			d.Runner = DirectRunner{}
		}
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// ExecuteWrite runs fn inside the runner's transaction, maps the result and
// reports it to the hooks.
func ExecuteWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.WithDefaults()
	return Observe(deps.Hooks, op, func() error {
		return deps.Runner.InTx(ctx, fn)
	})
}

// Observe runs fn outside any transaction with the same mapping and hook
// reporting as ExecuteWrite.
func Observe(hooks Hooks, op string, fn func() error) error {
	start := time.Now()
	if hooks == nil {
		hooks = noopHooks{}
	}
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.op"
	}
	mapped := MapError(op, fn())

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeStoreUnavailable) {
			hooks.IncUnavailable(op)
		}
	}
	hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
