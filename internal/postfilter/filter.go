// Package postfilter decides which search results genuinely belong to a location's feed.
package postfilter

import (
	"html"
	"regexp"
	"strings"

	"ResetTracker/internal/domain"
)

const defaultSuffix = "점"

var emphasisExpr = regexp.MustCompile(`</?(?i:b|strong)>`)

// Rules configures ownership and title matching.
type Rules struct {
	// Publisher is the only source identity accepted, e.g. "blog.naver.com/theholdshop".
	Publisher string
	// Brand is the token that opens the bracketed title tag.
	Brand string
	// Suffix is the optional branch marker after the location, "점" by default.
	Suffix string
}

// Filter applies Rules to candidate posts.
type Filter struct {
	publisher string
	brand     string
	suffix    string
}

// New builds a Filter; an empty suffix falls back to the default branch marker.
func New(rules Rules) *Filter {
	suffix := strings.TrimSpace(rules.Suffix)
	if suffix == "" {
		suffix = defaultSuffix
	}
	return &Filter{
		publisher: NormalizeSource(rules.Publisher),
		brand:     strings.TrimSpace(rules.Brand),
		suffix:    suffix,
	}
}

// Filter keeps posts that are owned by the publisher and tagged for location.
// Input order is preserved.
func (f *Filter) Filter(posts []domain.CandidatePost, location string) []domain.CandidatePost {
	if len(posts) == 0 || strings.TrimSpace(location) == "" {
		return nil
	}

	pattern := f.titlePattern(location)
	kept := make([]domain.CandidatePost, 0, len(posts))
	for _, post := range posts {
		if !f.Owned(post) {
			continue
		}
		if !pattern.MatchString(CleanTitle(post.Title)) {
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

// Owned reports whether the post's declared source is the configured publisher.
func (f *Filter) Owned(post domain.CandidatePost) bool {
	if f.publisher == "" {
		return false
	}
	return NormalizeSource(post.Author) == f.publisher
}

// Matches reports whether title carries the bracketed tag for location.
func (f *Filter) Matches(title, location string) bool {
	return f.titlePattern(location).MatchString(CleanTitle(title))
}

func (f *Filter) titlePattern(location string) *regexp.Regexp {
	expr := `\[` + regexp.QuoteMeta(f.brand) + `\s*` + regexp.QuoteMeta(strings.TrimSpace(location)) +
		`(\s*` + regexp.QuoteMeta(f.suffix) + `)?\]`
	return regexp.MustCompile(expr)
}

// CleanTitle strips inline emphasis tags and decodes HTML entities.
func CleanTitle(title string) string {
	return html.UnescapeString(emphasisExpr.ReplaceAllString(title, ""))
}

// NormalizeSource reduces a source link to host/path form for identity comparison.
func NormalizeSource(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, "https://")
	value = strings.TrimPrefix(value, "http://")
	value = strings.TrimPrefix(value, "www.")
	value = strings.TrimPrefix(value, "m.")
	if i := strings.IndexAny(value, "?#"); i >= 0 {
		value = value[:i]
	}
	return strings.TrimRight(value, "/")
}
