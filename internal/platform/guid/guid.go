// Package guid supplies globally unique identifiers for new aggregates.
package guid

import (
	"sync"

	"github.com/google/uuid"
)

// Generator hands out identities on demand.
type Generator interface {
	Create() uuid.UUID
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() uuid.UUID

func (f GeneratorFunc) Create() uuid.UUID { return f() }

// Random returns a generator of version 4 (random) UUIDs.
func Random() Generator {
	return GeneratorFunc(uuid.New)
}

// TimeOrdered returns a generator of version 7 UUIDs, which sort by creation
// time and keep primary key inserts clustered. Falls back to v4 if the v7
// source fails.
func TimeOrdered() Generator {
	return GeneratorFunc(func() uuid.UUID {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.New()
		}
		return id
	})
}

// Sequence replays a fixed list of ids and then falls back to random ones.
// Used by tests that need deterministic identities.
type Sequence struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func NewSequence(ids ...uuid.UUID) *Sequence {
	return &Sequence{ids: append([]uuid.UUID(nil), ids...)}
}

func (s *Sequence) Create() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return uuid.New()
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}
