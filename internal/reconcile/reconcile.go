// Package reconcile decides whether a new observation supersedes the stored status.
//
// Everything here is free of I/O so the recency rules can be checked directly.
package reconcile

import (
	"ResetTracker/internal/domain"
)

// Decision is the outcome of comparing an observation to the current record.
type Decision int

const (
	NoOp Decision = iota
	Replace
)

func (d Decision) String() string {
	if d == Replace {
		return "replace"
	}
	return "noop"
}

// Decide returns Replace when there is no record yet or the observation is strictly newer.
// Equal dates are treated as already seen.
func Decide(obs domain.ClassifiedObservation, current *domain.StatusRecord) Decision {
	if current == nil {
		return Replace
	}
	if obs.PublishDate.After(current.LatestDate) {
		return Replace
	}
	return NoOp
}

// SelectLatest keeps one observation per key: the one with the greatest publish date.
// Ties go to the first observation seen. Keys appear in first-seen order.
func SelectLatest(observations []domain.ClassifiedObservation) []domain.ClassifiedObservation {
	if len(observations) == 0 {
		return nil
	}

	index := make(map[domain.Key]int, len(observations))
	winners := make([]domain.ClassifiedObservation, 0, len(observations))
	for _, obs := range observations {
		key := obs.Key()
		i, ok := index[key]
		if !ok {
			index[key] = len(winners)
			winners = append(winners, obs)
			continue
		}
		if obs.PublishDate.After(winners[i].PublishDate) {
			winners[i] = obs
		}
	}
	return winners
}

// CanSupersede reports whether a post dated date could replace any record for location.
// It is false only when every category already has a record at least as new, which lets
// callers skip fetching and OCR for posts that cannot change anything.
func CanSupersede(date domain.PostDate, location string, records []domain.StatusRecord) bool {
	latest := make(map[domain.Category]domain.PostDate, len(records))
	for _, rec := range records {
		if rec.Location != location {
			continue
		}
		if current, ok := latest[rec.Category]; !ok || rec.LatestDate.After(current) {
			latest[rec.Category] = rec.LatestDate
		}
	}

	for _, category := range domain.Categories() {
		stored, ok := latest[category]
		if !ok || date.After(stored) {
			return true
		}
	}
	return false
}
