package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Category is the closed set of operational statuses a post image can announce.
type Category string

const (
	CategoryResetSoon       Category = "RESET_SOON"
	CategoryResetComplete   Category = "RESET_COMPLETE"
	CategorySettingSchedule Category = "SETTING_SCHEDULE"
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{CategoryResetSoon, CategoryResetComplete, CategorySettingSchedule}
}

// Label is the human-readable name used for archive directories and pages.
func (c Category) Label() string {
	switch c {
	case CategoryResetSoon:
		return "탈거임박"
	case CategoryResetComplete:
		return "세팅완료"
	case CategorySettingSchedule:
		return "세팅일정"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a stored category code back to a Category.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.TrimSpace(value))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", value)
	}
	return c, nil
}

// PostDate is a day-resolution date in fixed-width YYYYMMDD form,
// so string comparison orders dates chronologically.
type PostDate string

const postDateLayout = "20060102"

// ParsePostDate accepts "20240115", "2024-01-15", "2024.01.15" and
// longer timestamps that start with one of those forms.
func ParsePostDate(raw string) (PostDate, error) {
	cleaned := strings.NewReplacer("-", "", ".", "", "/", "").Replace(strings.TrimSpace(raw))
	if len(cleaned) < len(postDateLayout) {
		return "", fmt.Errorf("invalid post date %q", raw)
	}
	cleaned = cleaned[:len(postDateLayout)]
	if _, err := time.Parse(postDateLayout, cleaned); err != nil {
		return "", fmt.Errorf("invalid post date %q: %w", raw, err)
	}
	return PostDate(cleaned), nil
}

// PostDateOf formats t as a PostDate in t's location.
func PostDateOf(t time.Time) PostDate {
	return PostDate(t.Format(postDateLayout))
}

// After reports whether d is strictly newer than other.
func (d PostDate) After(other PostDate) bool {
	return d > other
}

// Time returns the midnight of d in loc.
func (d PostDate) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(postDateLayout, string(d), loc)
}

func (d PostDate) String() string {
	return string(d)
}

// CandidatePost is a raw search result before filtering.
type CandidatePost struct {
	Title       string
	Link        string
	PublishDate string
	Author      string
	Description string
}

// PostID pulls the post identifier out of the link: the logNo query
// parameter when present, else the last path segment.
func (p CandidatePost) PostID() string {
	parsed, err := url.Parse(strings.TrimSpace(p.Link))
	if err != nil {
		return ""
	}
	if id := parsed.Query().Get("logNo"); id != "" {
		return id
	}
	trimmed := strings.TrimRight(parsed.Path, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

// PostContent is what the extractor returns for a single post page.
type PostContent struct {
	Body     string
	ImageURL string
}

// Key identifies a status record.
type Key struct {
	Location string
	Category Category
}

func (k Key) String() string {
	return k.Location + "/" + string(k.Category)
}

// ClassifiedObservation is a post that passed filtering, extraction and classification.
type ClassifiedObservation struct {
	Location    string
	Category    Category
	PostID      string
	PublishDate PostDate
	Title       string
	Link        string
	Description string
	BodyText    string
	ImageURL    string
	Image       []byte
}

// Key returns the record key the observation reconciles against.
func (o ClassifiedObservation) Key() Key {
	return Key{Location: o.Location, Category: o.Category}
}

// StatusRecord is the persisted latest-known status for a (location, category) pair.
type StatusRecord struct {
	Location     string
	Category     Category
	LatestDate   PostDate
	ImagePath    string
	PostID       string
	Title        string
	Link         string
	Description  string
	ReconciledAt time.Time
}

// Key returns the record key.
func (r StatusRecord) Key() Key {
	return Key{Location: r.Location, Category: r.Category}
}

// RunStatus is the outcome stored in a location's run log row.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
)

// RunLog summarizes the last run for a location.
type RunLog struct {
	Location   string
	RunID      string
	Status     RunStatus
	UpdatedAt  time.Time
	Categories []Category
}

// RunSummary aggregates counters for one pipeline run.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	Duration        time.Duration
	Locations       int
	FailedLocations []string
	Candidates      int
	Accepted        int
	Skipped         int
	Classified      int
	Replaced        int
	Unchanged       int
	Failed          int
}
