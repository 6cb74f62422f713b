package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"integer", "2", 2},
		{"decimal", "0.5", 0.5},
		{"decimal with trailing text", "1.5 cups", 1.5},
		{"simple fraction", "3/4", 0.75},
		{"fraction with spaces", "1 / 2", 0.5},
		{"mixed number", "1 1/2", 1.5},
		{"mixed number with unit", "2 3/4 cups", 2.75},
		{"vulgar half", "½", 0.5},
		{"vulgar quarter", "¼", 0.25},
		{"vulgar two thirds", "⅔", 2.0 / 3.0},
		{"glued vulgar mixed", "1½", 1.5},
		{"spaced vulgar mixed", "2 ¾", 2.75},
		{"garbage", "abc", 0},
		{"empty", "", 0},
		{"whitespace only", "   ", 0},
		{"zero denominator", "3/0", 0},
		{"leading junk", "about 2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseQuantity(tt.text), 1e-9)
		})
	}
}

func TestToBaseUnit(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		unit      string
		wantValue float64
		wantBase  Base
	}{
		{"ounces", 2, "oz", 56.699, Grams},
		{"pounds", 1, "lb", 453.592, Grams},
		{"pounds plural", 2, "lbs", 907.184, Grams},
		{"kilograms", 1.5, "kg", 1500, Grams},
		{"grams passthrough", 250, "g", 250, Grams},
		{"teaspoons", 3, "tsp", 14.78676, Milliliters},
		{"tablespoons", 2, "tbsp", 29.5736, Milliliters},
		{"cups", 2, "cups", 473.176, Milliliters},
		{"liters", 1, "l", 1000, Milliliters},
		{"milliliters passthrough", 100, "ml", 100, Milliliters},
		{"fluid ounces", 1, "fl oz", 29.5735, Milliliters},
		{"uppercase unit", 1, "OZ", 28.3495, Grams},
		{"trailing period", 1, "lb.", 453.592, Grams},
		{"cloves are each", 3, "cloves", 3, Each},
		{"cans are each", 2, "can", 2, Each},
		{"unknown unit defaults to each", 5, "handfuls", 5, Each},
		{"empty unit defaults to each", 4, "", 4, Each},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBaseUnit(tt.amount, tt.unit)
			assert.InDelta(t, tt.wantValue, got.Value, 0.001)
			assert.Equal(t, tt.wantBase, got.Base)
		})
	}
}

func TestToBaseUnitMonotonic(t *testing.T) {
	unitsUnderTest := []string{"oz", "lb", "kg", "g", "tsp", "tbsp", "cup", "l", "ml", "fl oz", "clove", "mystery"}
	amounts := []float64{0.25, 1, 3.5, 100}

	for _, unit := range unitsUnderTest {
		for _, amount := range amounts {
			single := ToBaseUnit(amount, unit)
			double := ToBaseUnit(amount*2, unit)
			assert.Equal(t, single.Base, double.Base, "base must not change for %s", unit)
			assert.InDelta(t, single.Value*2, double.Value, 1e-9, "doubling %v %s", amount, unit)
		}
	}
}

func TestIsKnownUnit(t *testing.T) {
	assert.True(t, IsKnownUnit("cups"))
	assert.True(t, IsKnownUnit("FL OZ"))
	assert.False(t, IsKnownUnit("handfuls"))
}
