package units

import (
	"regexp"
	"strconv"
	"strings"
)

// 包裝規格的重量/容量樣式，交替順序決定了 lb 先於 l、kg 先於 g 被嘗試
var weightVolumePattern = regexp.MustCompile(
	`(?i)(\d+(?:\.\d+)?)\s*(fl\.?\s?oz|fluid\s+ounces?|ounces?|oz|pounds?|lbs?|kilograms?|kg|grams?|g|milliliters?|ml|liters?|litres?|l)\b`)

// 計數樣式（12 count、6 ct、4 pk）
var countPattern = regexp.MustCompile(
	`(?i)(\d+)\s*(count|ct|pk|packs?|pieces?|pcs?|each|ea)\b`)

// ParsePackageSize 解析供應商的包裝規格文字
// 回傳 nil 表示認不出任何樣式，呼叫端必須自行代入預設值
func ParsePackageSize(sizeText string) *Quantity {
	text := strings.TrimSpace(sizeText)
	if text == "" {
		return nil
	}

	// 先試重量/容量
	if m := weightVolumePattern.FindStringSubmatch(text); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		token := NormalizeUnitToken(m[2])
		if entry, ok := unitTable[token]; ok && entry.Base != Each {
			return &Quantity{Value: amount * entry.Value, Base: entry.Base}
		}
	}

	// 再試計數
	if m := countPattern.FindStringSubmatch(text); m != nil {
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return &Quantity{Value: amount, Base: Each}
	}

	return nil
}
