package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

type namedStrategy string

func (n namedStrategy) Name() string { return string(n) }

func (n namedStrategy) Search(context.Context, ports.Query) ([]domain.CandidatePost, error) {
	return []domain.CandidatePost{{Title: string(n)}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedStrategy("rss"))
	reg.Register(namedStrategy("naver"))

	got, err := reg.Resolve("rss")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Name() != "rss" {
		t.Fatalf("unexpected strategy %s", got.Name())
	}

	if _, err := reg.Resolve("scrape"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}

	if names := strings.Join(reg.Names(), ","); names != "naver,rss" {
		t.Fatalf("unexpected names %s", names)
	}
}

func TestRegisterReplaces(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(namedStrategy("rss"))
	reg.Register(namedStrategy("rss"))
	if len(reg.Names()) != 1 {
		t.Fatalf("expected a single entry, got %v", reg.Names())
	}
}
