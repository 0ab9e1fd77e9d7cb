// Package guard admits a single in-flight mutation per key.
package guard

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned when a mutation for the same key has not finished yet.
var ErrInFlight = errors.New("mutation already in flight")

// Release ends an admitted mutation. Calling it more than once is harmless.
type Release func()

// Guard tracks an in-flight flag per key.
type Guard interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Memory keeps in-flight flags in process memory.
type Memory struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{inFlight: make(map[string]struct{})}
}

func (m *Memory) Acquire(_ context.Context, key string) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[key]; busy {
		return nil, ErrInFlight
	}

	m.inFlight[key] = struct{}{}

	var once sync.Once

	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.inFlight, key)
			m.mu.Unlock()
		})
	}, nil
}
