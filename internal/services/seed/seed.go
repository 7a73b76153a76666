// Package seed fills an empty store with its initial data.
package seed

import (
	"context"
	"fmt"

	"github.com/yungbote/elementstore/internal/observability"
	"github.com/yungbote/elementstore/internal/platform/ctxutil"
	"github.com/yungbote/elementstore/internal/platform/logger"
)

// Contributor seeds one kind of data. Seed reports how many records it wrote
// and must write nothing when its data is already present.
type Contributor interface {
	Name() string
	Seed(ctx context.Context) (int, error)
}

// DataSeeder runs contributors in registration order for the scope in ctx.
type DataSeeder struct {
	contributors []Contributor
	metrics      *observability.Metrics
	log          *logger.Logger
}

func NewDataSeeder(baseLog *logger.Logger, metrics *observability.Metrics, contributors ...Contributor) *DataSeeder {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &DataSeeder{
		contributors: contributors,
		metrics:      metrics,
		log:          baseLog.With("service", "DataSeeder"),
	}
}

// Seed stops at the first failing contributor.
func (s *DataSeeder) Seed(ctx context.Context) error {
	scope := ctxutil.Tenant(ctx)
	if scope == ctxutil.HostScope {
		scope = "host"
	}
	for _, c := range s.contributors {
		n, err := c.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed %s (%s): %w", c.Name(), scope, err)
		}
		s.metrics.AddSeeded(n)
		if n > 0 {
			s.log.Info("seeded", "contributor", c.Name(), "scope", scope, "records", n)
		} else {
			s.log.Debug("seed skipped, data present", "contributor", c.Name(), "scope", scope)
		}
	}
	return nil
}
