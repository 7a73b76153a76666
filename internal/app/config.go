package app

import (
	"github.com/yungbote/elementstore/internal/observability"
	"github.com/yungbote/elementstore/internal/platform/config"
)

func otelConfig(cfg *config.Config) observability.OtelConfig {
	t := cfg.Tracing
	return observability.OtelConfig{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Environment: t.Environment,
		Endpoint:    t.Endpoint,
		Headers:     observability.ParseHeaders(t.Headers),
		Insecure:    t.Insecure,
		SampleRatio: t.SampleRatio,
	}
}
