package units

import (
	"regexp"
	"strconv"
	"strings"
)

// Base 基準單位
type Base string

const (
	Grams       Base = "g"
	Milliliters Base = "ml"
	Each        Base = "each"
)

// Quantity 換算後的數量
type Quantity struct {
	Value float64
	Base  Base
}

// 常見的 Unicode 分數字符，先展開成 n/d 再解析
var vulgarFractions = map[rune]string{
	'¼': "1/4", '½': "1/2", '¾': "3/4",
	'⅓': "1/3", '⅔': "2/3",
	'⅕': "1/5", '⅖': "2/5", '⅗': "3/5", '⅘': "4/5",
	'⅙': "1/6", '⅚': "5/6",
	'⅐': "1/7",
	'⅛': "1/8", '⅜': "3/8", '⅝': "5/8", '⅞': "7/8",
	'⅑': "1/9", '⅒': "1/10",
}

// 單位換算表：token -> 係數與基準單位
var unitTable = map[string]Quantity{
	// 重量
	"oz": {28.3495, Grams}, "ounce": {28.3495, Grams}, "ounces": {28.3495, Grams},
	"lb": {453.592, Grams}, "lbs": {453.592, Grams}, "pound": {453.592, Grams}, "pounds": {453.592, Grams},
	"kg": {1000, Grams}, "kilogram": {1000, Grams}, "kilograms": {1000, Grams},
	"g": {1, Grams}, "gram": {1, Grams}, "grams": {1, Grams},
	// 容量
	"tsp": {4.92892, Milliliters}, "teaspoon": {4.92892, Milliliters}, "teaspoons": {4.92892, Milliliters},
	"tbsp": {14.7868, Milliliters}, "tablespoon": {14.7868, Milliliters}, "tablespoons": {14.7868, Milliliters},
	"cup": {236.588, Milliliters}, "cups": {236.588, Milliliters},
	"l": {1000, Milliliters}, "liter": {1000, Milliliters}, "liters": {1000, Milliliters}, "litre": {1000, Milliliters}, "litres": {1000, Milliliters},
	"ml": {1, Milliliters}, "milliliter": {1, Milliliters}, "milliliters": {1, Milliliters},
	"floz": {29.5735, Milliliters},
	// 計數類
	"piece": {1, Each}, "pieces": {1, Each},
	"clove": {1, Each}, "cloves": {1, Each},
	"slice": {1, Each}, "slices": {1, Each},
	"can": {1, Each}, "cans": {1, Each},
	"package": {1, Each}, "packages": {1, Each}, "pkg": {1, Each},
	"each": {1, Each}, "count": {1, Each}, "ct": {1, Each},
	"pinch": {1, Each}, "dash": {1, Each},
	"bunch": {1, Each}, "head": {1, Each}, "stalk": {1, Each},
}

var (
	mixedPattern    = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)`)
	fractionPattern = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)`)
	decimalPattern  = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)
)

// ParseQuantity 解析數量文字為有理數
// 支援整數、小數、分數字符（½）、簡分數（3/4）與帶分數（1 1/2）
// 無法解析一律回傳 0，不回傳錯誤
func ParseQuantity(text string) float64 {
	s := expandVulgarFractions(strings.TrimSpace(text))
	if s == "" {
		return 0
	}

	// 帶分數
	if m := mixedPattern.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		num, _ := strconv.ParseFloat(m[2], 64)
		den, _ := strconv.ParseFloat(m[3], 64)
		if den == 0 {
			return whole
		}
		return whole + num/den
	}

	// 簡分數
	if m := fractionPattern.FindStringSubmatch(s); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if den == 0 {
			return 0
		}
		return num / den
	}

	// 整數或小數
	if m := decimalPattern.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		return v
	}

	return 0
}

// expandVulgarFractions 將分數字符展開為 n/d 形式
// "1½" 會先補一個空格成為帶分數 "1 1/2"
func expandVulgarFractions(s string) string {
	var b strings.Builder
	for _, r := range s {
		if frac, ok := vulgarFractions[r]; ok {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
			b.WriteString(frac)
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// NormalizeUnitToken 清理單位 token（小寫、去句點、合併 fl oz）
func NormalizeUnitToken(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSuffix(u, ".")
	u = strings.ReplaceAll(u, "fluid ounces", "floz")
	u = strings.ReplaceAll(u, "fluid ounce", "floz")
	u = strings.ReplaceAll(u, "fl oz", "floz")
	u = strings.ReplaceAll(u, "fl. oz", "floz")
	return strings.TrimSpace(u)
}

// ToBaseUnit 把 (數量, 單位) 換算成基準單位
// 認不得的單位一律視為 each，數值不變
func ToBaseUnit(amount float64, unit string) Quantity {
	token := NormalizeUnitToken(unit)
	if entry, ok := unitTable[token]; ok {
		return Quantity{Value: amount * entry.Value, Base: entry.Base}
	}
	return Quantity{Value: amount, Base: Each}
}

// IsKnownUnit 回報單位 token 是否在換算表內
func IsKnownUnit(unit string) bool {
	_, ok := unitTable[NormalizeUnitToken(unit)]
	return ok
}
