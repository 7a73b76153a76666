package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/elementstore/internal/observability"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncUnavailable(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncUnavailable(string)                          {}

// NoopHooks discards every signal.
func NoopHooks() Hooks { return noopHooks{} }

type observabilityHooks struct {
	backend string
	metrics *observability.Metrics
}

// NewObservabilityHooks creates aggregate hooks backed by observability
// metrics, labelled with the backend name.
func NewObservabilityHooks(metrics *observability.Metrics, backend string) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{backend: strings.TrimSpace(backend), metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.ObserveRepoOperation(h.backend, strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncRepoConflict(h.backend, strings.TrimSpace(name))
}

func (h *observabilityHooks) IncUnavailable(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncRepoUnavailable(h.backend, strings.TrimSpace(name))
}
