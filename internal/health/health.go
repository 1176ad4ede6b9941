// Package health provides a registry of named subsystem health checkers.
package health

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"
)

// Status represents the health of a single subsystem.
type Status struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Detail   string `json:"detail,omitempty"`
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []namedChecker
	timeout  time.Duration
}

type namedChecker struct {
	name     string
	critical bool
	check    Checker
}

// NewRegistry creates a registry whose checks are each bounded by timeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{timeout: timeout}
}

// Register adds a critical checker. An unhealthy critical subsystem makes
// the service not ready.
func (r *Registry) Register(name string, check Checker) {
	r.add(name, true, check)
}

// RegisterInfo adds a checker that is reported but never fails readiness.
// Signal sources use it: a degraded source lowers evidence, not availability.
func (r *Registry) RegisterInfo(name string, check Checker) {
	r.add(name, false, check)
}

func (r *Registry) add(name string, critical bool, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, critical: critical, check: check})
	r.mu.Unlock()
}

// CheckAll runs all registered checkers concurrently and returns the
// aggregate health plus individual results in registration order.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	statuses = make([]Status, len(checkers))
	var wg sync.WaitGroup
	for i, nc := range checkers {
		wg.Add(1)
		go func(i int, nc namedChecker) {
			defer wg.Done()
			s := nc.check(ctx)
			s.Name = nc.name
			s.Critical = nc.critical
			statuses[i] = s
		}(i, nc)
	}
	wg.Wait()

	healthy = true
	for _, s := range statuses {
		if s.Critical && !s.Healthy {
			healthy = false
		}
	}
	return healthy, statuses
}

// DB checks that the database answers a ping.
func DB(db *sql.DB) Checker {
	return func(ctx context.Context) Status {
		if err := db.PingContext(ctx); err != nil {
			return Status{Healthy: false, Detail: "ping failed"}
		}
		return Status{Healthy: true}
	}
}

// OpenCircuits reports unhealthy while any of the named circuits is open.
func OpenCircuits(open func() []string) Checker {
	return func(context.Context) Status {
		keys := open()
		if len(keys) == 0 {
			return Status{Healthy: true}
		}
		return Status{Healthy: false, Detail: "open: " + strings.Join(keys, ",")}
	}
}
