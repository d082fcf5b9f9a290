package cart

import (
	"context"
	"sync"
)

// MemorySession is a SessionHandle held in process memory.
type MemorySession struct {
	mu     sync.Mutex
	data   []byte
	writes int
}

func (m *MemorySession) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...), nil
}

func (m *MemorySession) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *MemorySession) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.writes++
	return nil
}

// Writes counts Save and Delete calls.
func (m *MemorySession) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
