package classifier

import (
	"strings"

	"ResetTracker/internal/domain"
)

// Marker pairs a phrase expected verbatim in a status image with its category.
type Marker struct {
	Phrase   string
	Category domain.Category
}

// Markers is checked in order; the first phrase found decides the category.
var Markers = []Marker{
	{Phrase: "RESET SOON", Category: domain.CategoryResetSoon},
	{Phrase: "RESET COMPLETE", Category: domain.CategoryResetComplete},
	{Phrase: "SETTING SCHEDULE", Category: domain.CategorySettingSchedule},
}

// MatchCategory maps recognized text to a category by substring containment.
func MatchCategory(text string) (domain.Category, bool) {
	normalized := strings.ToUpper(text)
	for _, marker := range Markers {
		if strings.Contains(normalized, marker.Phrase) {
			return marker.Category, true
		}
	}
	return "", false
}
