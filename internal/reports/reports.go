// Package reports stores confirmed scam/abuse report counts per address.
package reports

import (
	"context"
	"errors"
	"sync"

	"github.com/mbd888/chainrisk/internal/signal"
)

// ErrInvalidCount is returned when a report increment is not positive.
var ErrInvalidCount = errors.New("reports: count must be positive")

// Store is the scam-report collaborator.
type Store interface {
	// CountReports returns the number of confirmed reports for address.
	// Unknown addresses have zero reports.
	CountReports(ctx context.Context, address string) (int, error)
	// AddReports records n more reports and returns the new total.
	AddReports(ctx context.Context, address string, n int) (int, error)
}

// Seed is the built-in report table used by the memory store and the
// initial migration.
var Seed = map[string]int{
	"0xcafebabecafebabecafebabecafebabecafebabe": 5,
	"0x1234567890abcdef1234567890abcdef12345678": 2,
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewMemoryStore returns a store preloaded with initial (normalized on
// insert). Pass Seed for the built-in table.
func NewMemoryStore(initial map[string]int) *MemoryStore {
	m := &MemoryStore{counts: make(map[string]int, len(initial))}
	for addr, n := range initial {
		if n > 0 {
			m.counts[signal.NormalizeAddress(addr)] += n
		}
	}
	return m
}

func (m *MemoryStore) CountReports(_ context.Context, address string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[signal.NormalizeAddress(address)], nil
}

func (m *MemoryStore) AddReports(_ context.Context, address string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidCount
	}
	addr := signal.NormalizeAddress(address)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[addr] += n
	return m.counts[addr], nil
}
