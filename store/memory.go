package store

import (
	"sync"

	"github.com/stevemurr/admit-stats/record"
)

// Memory keeps the table in memory. Data is lost on restart.
// Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	table record.Table
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReadAll() (record.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.Clone(), nil
}

func (m *Memory) WriteAll(t record.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = t.Clone()
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) String() string { return "memory" }
