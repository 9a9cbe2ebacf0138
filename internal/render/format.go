package render

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Placeholders shown instead of missing fields.
const (
	UnknownPlant      = "Unknown Plant"
	UnknownCommonName = "Unknown"
	NoDescription     = "No description available."
	NotAvailable      = "N/A"
	LoadingText       = "Loading plant details..."
)

// DescriptionBudget is the number of characters kept from a description.
const DescriptionBudget = 180

const percentEpsilon = 1e-9

// Ellipsis marks a truncated description.
const Ellipsis = "..."

// Band is the visual treatment for a probability.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Color returns the card background for the band.
func (b Band) Color() string {
	switch b {
	case BandHigh:
		return "#d4edda"
	case BandMedium:
		return "#fff3cd"
	default:
		return "#f8d7da"
	}
}

// Percent scales a 0-1 probability to a whole percentage, rounding up.
func Percent(probability float64) int {
	if math.IsNaN(probability) || probability <= 0 {
		return 0
	}
	scaled := probability * 100
	// 0.07*100 is 7.000000000000001; only float noise this close to a
	// whole number is snapped before rounding up.
	if whole := math.Round(scaled); math.Abs(scaled-whole) < percentEpsilon {
		scaled = whole
	}
	pct := int(math.Ceil(scaled))
	if pct > 100 {
		return 100
	}
	return pct
}

// BandFor classifies a percentage: above 80 high, 40 to 80 medium, below 40 low.
func BandFor(percent int) Band {
	switch {
	case percent > 80:
		return BandHigh
	case percent >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// Truncate shortens text longer than DescriptionBudget characters and marks
// the cut with Ellipsis.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= DescriptionBudget {
		return text
	}
	runes := []rune(text)
	return string(runes[:DescriptionBudget]) + Ellipsis
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
