package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackageSize(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantValue float64
		wantBase  Base
	}{
		{"ounces with space", "14 oz", 396.893, Grams},
		{"grams glued", "500g", 500, Grams},
		{"one pound", "1 lb", 453.592, Grams},
		{"pounds plural", "2 lbs", 907.184, Grams},
		{"fluid ounces", "33.8 fl oz", 999.584, Milliliters},
		{"fluid ounce spelled out", "12 fluid ounces", 354.882, Milliliters},
		{"one liter", "1 l", 1000, Milliliters},
		{"milliliters", "750 ml", 750, Milliliters},
		{"kilogram", "1 kg", 1000, Grams},
		{"count", "12 count", 12, Each},
		{"ct abbreviation", "6 ct", 6, Each},
		{"pk abbreviation", "4 pk", 4, Each},
		{"pieces", "10 pieces", 10, Each},
		{"size buried in text", "net wt 14 oz (397g)", 396.893, Grams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePackageSize(tt.text)
			require.NotNil(t, got)
			assert.InDelta(t, tt.wantValue, got.Value, 0.01)
			assert.Equal(t, tt.wantBase, got.Base)
		})
	}
}

func TestParsePackageSizeUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"free text", "unknown"},
		{"empty", ""},
		{"descriptive only", "family size"},
		{"number without unit", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ParsePackageSize(tt.text))
		})
	}
}
