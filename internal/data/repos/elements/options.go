package elements

import (
	"github.com/yungbote/elementstore/internal/data/aggregates"
	"github.com/yungbote/elementstore/internal/platform/audit"
)

type options struct {
	hooks            aggregates.Hooks
	runner           aggregates.TxRunner
	stamper          audit.Stamper
	collectionPrefix string
}

// Option customizes a repository.
type Option func(*options)

// WithHooks reports every operation to h.
func WithHooks(h aggregates.Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithTxRunner replaces the GORM transaction runner. Ignored by the document
// adapter.
func WithTxRunner(r aggregates.TxRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithStamper sets the clock used for audit fields the repository fills.
func WithStamper(s audit.Stamper) Option {
	return func(o *options) { o.stamper = s }
}

// WithCollectionPrefix sets the document collection prefix ("App" gives
// "AppElements"). Ignored by the relational adapter.
func WithCollectionPrefix(prefix string) Option {
	return func(o *options) { o.collectionPrefix = prefix }
}

func buildOptions(opts []Option) options {
	o := options{
		hooks:            aggregates.NoopHooks(),
		stamper:          audit.NewStamper(),
		collectionPrefix: "App",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.hooks == nil {
		o.hooks = aggregates.NoopHooks()
	}
	return o
}
