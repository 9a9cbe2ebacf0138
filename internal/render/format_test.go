package render

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected int
	}{
		{"zero", 0.0, 0},
		{"rounds up tiny", 0.005, 1},
		{"certain", 1.0, 100},
		{"float noise below whole", 0.29, 29},
		{"float noise above whole", 0.07, 7},
		{"just above whole", 0.500000001, 51},
		{"barely positive", 4e-9, 1},
		{"rounds up fraction", 0.8401, 85},
		{"negative", -0.3, 0},
		{"nan", math.NaN(), 0},
		{"above one", 1.7, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Percent(tc.input); got != tc.expected {
				t.Fatalf("expected %d got %d", tc.expected, got)
			}
		})
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		name     string
		percent  int
		expected Band
		color    string
	}{
		{"high", 85, BandHigh, "#d4edda"},
		{"medium", 50, BandMedium, "#fff3cd"},
		{"low", 10, BandLow, "#f8d7da"},
		{"upper edge is medium", 80, BandMedium, "#fff3cd"},
		{"just above edge", 81, BandHigh, "#d4edda"},
		{"lower edge is medium", 40, BandMedium, "#fff3cd"},
		{"just below edge", 39, BandLow, "#f8d7da"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			band := BandFor(tc.percent)
			if band != tc.expected {
				t.Fatalf("expected %s got %s", tc.expected, band)
			}
			if band.Color() != tc.color {
				t.Fatalf("expected color %s got %s", tc.color, band.Color())
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := Truncate(long)
	if got != strings.Repeat("a", 180)+"..." {
		t.Fatalf("unexpected truncation: %q", got)
	}

	short := strings.Repeat("b", 100)
	if Truncate(short) != short {
		t.Fatalf("short description should be unmodified")
	}

	exact := strings.Repeat("c", DescriptionBudget)
	if Truncate(exact) != exact {
		t.Fatalf("description at the budget should be unmodified")
	}

	multibyte := strings.Repeat("é", 190)
	cut := Truncate(multibyte)
	if !strings.HasSuffix(cut, Ellipsis) {
		t.Fatalf("expected ellipsis on multibyte text")
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(cut, Ellipsis)); n != DescriptionBudget {
		t.Fatalf("expected %d runes got %d", DescriptionBudget, n)
	}
	if !utf8.ValidString(cut) {
		t.Fatalf("truncation split a rune")
	}
}
