package arbitrage

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// DefaultOrder is the run order used when no strategies are configured.
var DefaultOrder = []string{"back", "back_lay", "lay_allocation", "point"}

// Registry holds named arbitrage strategies for selection by config.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add strategies.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// NewDefaultRegistry returns a registry holding the four built-in strategies.
func NewDefaultRegistry(cfg LayAllocationConfig, solver Solver, logger *slog.Logger) *Registry {
	reg := NewRegistry()
	reg.Register("back", NewBack(logger))
	reg.Register("back_lay", NewBackLay(logger))
	reg.Register("lay_allocation", NewLayAllocation(cfg, solver, logger))
	reg.Register("point", NewPointSymmetric(logger))
	return reg
}

// Register adds a strategy under the given name.
func (r *Registry) Register(name string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = s
}

// Get returns the strategy by name, or an error if not found.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("arbitrage strategy %q not found", name)
	}
	return s, nil
}

// Select resolves names in the given order. An empty list selects
// DefaultOrder. Duplicate names are an error.
func (r *Registry) Select(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	seen := make(map[string]bool, len(names))
	out := make([]Strategy, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if seen[name] {
			return nil, fmt.Errorf("arbitrage strategy %q selected twice", name)
		}
		seen[name] = true
		s, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// List returns all registered strategy names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
