// Package source resolves the configured candidate-post search strategy.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

// ErrUnknownStrategy is returned by Resolve for names nothing registered.
var ErrUnknownStrategy = errors.New("search strategy is not registered")

// Strategy captures a single search backend (Naver search API, RSS feed, etc.).
type Strategy interface {
	Name() string
	Search(ctx context.Context, q ports.Query) ([]domain.CandidatePost, error)
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
}

// Names lists registered strategies in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
