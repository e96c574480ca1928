package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
	"ResetTracker/internal/source"
)

// StrategySource implements PostSearcher via a registered search strategy.
type StrategySource struct {
	registry      *source.Registry
	strategy      string
	queryTemplate string
	brand         string
	logger        *slog.Logger
}

var _ ports.PostSearcher = (*StrategySource)(nil)

// NewStrategySource wires the registry with the configured strategy name and query template.
// The template may reference {brand} and {location}.
func NewStrategySource(reg *source.Registry, strategy, queryTemplate, brand string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:      reg,
		strategy:      strategy,
		queryTemplate: queryTemplate,
		brand:         brand,
		logger:        log,
	}
}

// Search resolves the strategy and runs the query, filling in the query text when empty.
func (s *StrategySource) Search(ctx context.Context, q ports.Query) ([]domain.CandidatePost, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("search registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.strategy)
	if err != nil {
		return nil, err
	}

	if q.Text == "" {
		q.Text = s.QueryText(q.Location)
	}

	s.debug("search", "strategy", s.strategy, "location", q.Location, "query", q.Text)
	posts, err := strategy.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s via %s: %w", q.Location, s.strategy, err)
	}

	s.debug("search produced posts", "location", q.Location, "count", len(posts))
	return posts, nil
}

// QueryText renders the query template for location.
func (s *StrategySource) QueryText(location string) string {
	template := s.queryTemplate
	if template == "" {
		template = "[{brand}{location}]"
	}
	return strings.NewReplacer("{brand}", s.brand, "{location}", location).Replace(template)
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
