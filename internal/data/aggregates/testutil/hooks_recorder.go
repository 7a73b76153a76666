package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/elementstore/internal/data/aggregates"
)

// HooksRecorder captures repository hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations  []OperationEvent
	Conflicts   []string
	Unavailable []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{Name: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncUnavailable(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Unavailable = append(h.Unavailable, name)
}

// LastStatus returns the status of the most recent operation called name.
func (h *HooksRecorder) LastStatus(name string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.Operations) - 1; i >= 0; i-- {
		if h.Operations[i].Name == name {
			return h.Operations[i].Status, true
		}
	}
	return "", false
}

// Reset drops everything recorded so far.
func (h *HooksRecorder) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = nil
	h.Conflicts = nil
	h.Unavailable = nil
}
