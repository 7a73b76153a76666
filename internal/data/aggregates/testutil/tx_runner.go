package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/elementstore/internal/data/aggregates"
	"github.com/yungbote/elementstore/internal/platform/dbctx"
	"gorm.io/gorm"
)

// InjectedTxRunner injects begin, body and commit failures. With DB set the
// body runs inside a real GORM transaction that is rolled back whenever a
// failure is injected, so tests can assert nothing was persisted.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	db := r.DB
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failCommit
	}

	var err error
	if db != nil {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}

// ErrInjected is a ready-made failure for FailBegin/FailCommit.
var ErrInjected = errors.New("injected failure")
