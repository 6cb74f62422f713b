package normalize

import (
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"strings"

	"meal-planner/internal/core/extract"
	"meal-planner/internal/core/units"
	"meal-planner/internal/pkg/common"
)

// 正規化後仍缺食材或步驟時填入的提示行，維持食譜永不為空的約定
const (
	missingIngredientsLine  = "See the original recipe page for the full ingredient list."
	missingInstructionsLine = "Visit the source page for complete cooking instructions."

	defaultServings    = 4
	defaultTimeMinutes = 30
)

var (
	bulletChars      = "•●▪‣·"
	firstIntPattern  = regexp.MustCompile(`\d+`)
	isoDuration      = regexp.MustCompile(`(?i)^PT(?:(\d+)H)?(?:(\d+)M)?`)
	sentenceBoundary = regexp.MustCompile(`\.\s+[A-Z]`)
	fractionToken    = regexp.MustCompile(`^\d+\s*/\s*\d+$`)
	integerToken     = regexp.MustCompile(`^\d+$`)
	leadingNumber    = regexp.MustCompile(`^[\d¼½¾⅓⅔⅕⅖⅗⅘⅙⅚⅐⅛⅜⅝⅞⅑⅒]`)
)

// Normalize 把任一提取層的寬鬆負載收斂成一份標準食譜
// 負載形狀不可信：欄位可能缺漏、型別不定、或整段塞在一個字串裡
func Normalize(payload *extract.Payload, pageURL, method string) *common.Recipe {
	recipe := &common.Recipe{
		ID:               common.GenerateUUID(),
		ExtractionMethod: method,
	}

	if payload != nil {
		recipe.Title = firstText(payload.Title, payload.Name)
		recipe.Description = firstText(payload.Description)
		recipe.Cuisines = stringList(payload.Cuisine, payload.RecipeCuisine)
		recipe.Ingredients = decodeIngredients(firstPresent(payload.Ingredients, payload.RecipeIngredient))
		recipe.Instructions = decodeInstructions(firstPresent(payload.Instructions, payload.RecipeInstructions))
		recipe.Servings = decodeServings(payload.Servings, payload.RecipeYield, payload.Yield)
		recipe.TotalTimeMinutes = decodeTotalTime(payload.TotalTimeMinutes, payload.TotalTime, payload.CookTime)
		recipe.ImageURL = NormalizeURL(firstText(payload.Image, payload.ImageURL), pageURL)
		recipe.SourceURL = NormalizeURL(firstText(payload.URL, payload.Canonical, payload.SourceURL), pageURL)
	} else {
		recipe.Servings = defaultServings
		recipe.TotalTimeMinutes = defaultTimeMinutes
	}

	if recipe.Title == "" {
		recipe.Title = TitleFromURL(pageURL)
	}
	if recipe.SourceURL == "" {
		recipe.SourceURL = NormalizeURL(pageURL, "")
	}

	// 缺漏側補一行提示，不留空列表
	if len(recipe.Ingredients) == 0 {
		recipe.Ingredients = []common.Ingredient{{
			RawText: missingIngredientsLine,
			Name:    missingIngredientsLine,
		}}
	}
	if len(recipe.Instructions) == 0 {
		recipe.Instructions = []string{missingInstructionsLine}
	}

	return recipe
}

// firstPresent 回傳第一個帶內容的原始欄位
func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, raw := range raws {
		trimmed := strings.TrimSpace(string(raw))
		if trimmed == "" || trimmed == "null" {
			continue
		}
		return raw
	}
	return nil
}

// firstText 依序取出第一個非空白的文字值
// 字串陣列取第一個元素，數字轉成十進位字串
func firstText(raws ...json.RawMessage) string {
	for _, raw := range raws {
		if s := textOf(raw); s != "" {
			return s
		}
	}
	return ""
}

func textOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			if s := textOf(item); s != "" {
				return s
			}
		}
		return ""
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}

	return ""
}

// stringList 收集字串或字串陣列欄位裡的所有非空白值
func stringList(raws ...json.RawMessage) []string {
	var out []string
	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}

		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil {
			for _, item := range arr {
				if v := textOf(item); v != "" {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

// looseIngredient 物件型食材的寬鬆形狀，amount 可能是數字或字串
type looseIngredient struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
	Unit   string          `json:"unit"`
	Text   string          `json:"text"`
}

// decodeIngredients 把食材欄位收斂成結構化列表
// 接受字串陣列、物件陣列或單一分隔文字塊
func decodeIngredients(raw json.RawMessage) []common.Ingredient {
	if len(raw) == 0 {
		return nil
	}

	var out []common.Ingredient

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			var line string
			if err := json.Unmarshal(item, &line); err == nil {
				if line = strings.TrimSpace(line); line != "" {
					out = append(out, ParseIngredientLine(line))
				}
				continue
			}

			var obj looseIngredient
			if err := json.Unmarshal(item, &obj); err == nil {
				if ing, ok := ingredientFromObject(obj); ok {
					out = append(out, ing)
				}
			}
		}
		return out
	}

	var block string
	if err := json.Unmarshal(raw, &block); err == nil {
		for _, line := range splitIngredientBlock(block) {
			out = append(out, ParseIngredientLine(line))
		}
	}
	return out
}

func ingredientFromObject(obj looseIngredient) (common.Ingredient, bool) {
	name := strings.TrimSpace(obj.Name)
	if name == "" {
		name = strings.TrimSpace(obj.Text)
	}
	if name == "" {
		return common.Ingredient{}, false
	}

	amount := units.ParseQuantity(textOf(obj.Amount))
	unit := strings.TrimSpace(obj.Unit)

	raw := name
	if amountText := textOf(obj.Amount); amountText != "" {
		raw = strings.TrimSpace(strings.Join([]string{amountText, unit, name}, " "))
		raw = strings.Join(strings.Fields(raw), " ")
	}

	return common.Ingredient{
		RawText: raw,
		Name:    name,
		Amount:  amount,
		Unit:    unit,
	}, true
}

// splitIngredientBlock 拆開單一文字塊的食材
// 先按換行與項目符號切；只有在整塊只有一行時才按逗號切
func splitIngredientBlock(block string) []string {
	cleaned := block
	for _, r := range bulletChars {
		cleaned = strings.ReplaceAll(cleaned, string(r), "\n")
	}

	lines := splitNonEmpty(cleaned, "\n")
	if len(lines) == 1 && strings.Contains(lines[0], ",") {
		lines = splitNonEmpty(lines[0], ",")
	}
	return lines
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "-* \t")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseIngredientLine 把一行食材文字拆成數量、單位與名稱
// "1 1/2 cups jasmine rice" -> {1.5, "cups", "jasmine rice"}
// 解析不出數量時保留整行當名稱，數量為 0
func ParseIngredientLine(line string) common.Ingredient {
	line = strings.TrimSpace(line)
	ing := common.Ingredient{RawText: line, Name: line}

	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return ing
	}

	// 數量佔幾個 token："1 1/2" 與 "1 ½" 佔兩個
	consumed := 0
	if leadingNumber.MatchString(tokens[0]) {
		consumed = 1
		if len(tokens) >= 2 && integerToken.MatchString(tokens[0]) && isFractionToken(tokens[1]) {
			consumed = 2
		}
		ing.Amount = units.ParseQuantity(strings.Join(tokens[:consumed], " "))
	}

	// 單位：優先吃掉 "fl oz" 這類雙 token 單位
	rest := tokens[consumed:]
	if len(rest) >= 2 && units.IsKnownUnit(rest[0]+" "+rest[1]) {
		ing.Unit = rest[0] + " " + rest[1]
		rest = rest[2:]
	} else if len(rest) >= 1 && units.IsKnownUnit(rest[0]) {
		ing.Unit = rest[0]
		rest = rest[1:]
	}

	// 名稱去掉 "of" 開頭的連接詞
	if len(rest) > 0 && strings.EqualFold(rest[0], "of") {
		rest = rest[1:]
	}
	if name := strings.TrimSpace(strings.Join(rest, " ")); name != "" {
		ing.Name = name
	}

	return ing
}

func isFractionToken(token string) bool {
	if fractionToken.MatchString(token) {
		return true
	}
	runes := []rune(token)
	if len(runes) != 1 {
		return false
	}
	return strings.ContainsRune("¼½¾⅓⅔⅕⅖⅗⅘⅙⅚⅐⅛⅜⅝⅞⅑⅒", runes[0])
}

// decodeInstructions 把步驟欄位收斂成有序字串列表
func decodeInstructions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		var out []string
		for _, item := range arr {
			if s := textOf(item); s != "" {
				out = append(out, s)
			} else {
				// 步驟物件容錯，取 text 或 name
				var obj struct {
					Text string `json:"text"`
					Name string `json:"name"`
				}
				if err := json.Unmarshal(item, &obj); err == nil {
					if s := strings.TrimSpace(obj.Text); s != "" {
						out = append(out, s)
					} else if s := strings.TrimSpace(obj.Name); s != "" {
						out = append(out, s)
					}
				}
			}
		}
		return out
	}

	var block string
	if err := json.Unmarshal(raw, &block); err == nil {
		return SplitInstructionBlock(block)
	}
	return nil
}

// SplitInstructionBlock 拆開單一文字塊的步驟
// 有換行按換行切；否則按句界切（句點＋空白＋大寫），小數點不受影響
func SplitInstructionBlock(block string) []string {
	block = strings.TrimSpace(block)
	if block == "" {
		return nil
	}

	if strings.Contains(block, "\n") {
		return splitNonEmpty(block, "\n")
	}

	var out []string
	rest := block
	for {
		loc := sentenceBoundary.FindStringIndex(rest)
		if loc == nil {
			break
		}
		// 句點留給前句，大寫字母是下一句的開頭
		out = append(out, strings.TrimSpace(rest[:loc[0]+1]))
		rest = rest[loc[1]-1:]
	}
	if s := strings.TrimSpace(rest); s != "" {
		out = append(out, s)
	}
	return out
}

// decodeServings 解析份量，字串取第一個整數，預設 4 且至少為 1
func decodeServings(raws ...json.RawMessage) int {
	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}

		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			n := int(math.Floor(f))
			if n < 1 {
				n = 1
			}
			return n
		}

		if s := textOf(raw); s != "" {
			if m := firstIntPattern.FindString(s); m != "" {
				n := units.ParseQuantity(m)
				if n >= 1 {
					return int(n)
				}
				return 1
			}
		}
	}
	return defaultServings
}

// decodeTotalTime 解析總時間為分鐘
// 接受整數分鐘或 ISO-8601 的 PT#H#M，預設 30
func decodeTotalTime(raws ...json.RawMessage) int {
	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}

		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			if n := int(math.Floor(f)); n > 0 {
				return n
			}
			continue
		}

		s := textOf(raw)
		if s == "" {
			continue
		}

		if m := isoDuration.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
			hours := int(units.ParseQuantity(m[1]))
			minutes := int(units.ParseQuantity(m[2]))
			if total := hours*60 + minutes; total > 0 {
				return total
			}
			continue
		}

		if m := firstIntPattern.FindString(s); m != "" {
			if n := int(units.ParseQuantity(m)); n > 0 {
				return n
			}
		}
	}
	return defaultTimeMinutes
}

// NormalizeURL 把網址正規化成絕對路徑
// 無 scheme 補 https，相對路徑以來源頁解析，壞網址回傳空字串而非錯誤
func NormalizeURL(raw, pageURL string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return ""
		}
		return u.String()
	case "":
		// protocol-relative 或站內相對路徑
		if u.Host != "" {
			u.Scheme = "https"
			return u.String()
		}
		if pageURL == "" {
			return ""
		}
		base, err := url.Parse(pageURL)
		if err != nil || base.Host == "" {
			return ""
		}
		resolved := base.ResolveReference(u)
		if resolved.Host == "" {
			return ""
		}
		return resolved.String()
	default:
		return ""
	}
}

// TitleFromURL 從網址最後一段路徑推出可讀標題
// "/recipes/thai-basil-chicken" -> "Thai Basil Chicken"
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Recipe"
	}

	path := strings.Trim(u.Path, "/")
	segments := strings.Split(path, "/")
	slug := segments[len(segments)-1]

	// 去掉副檔名
	if idx := strings.LastIndex(slug, "."); idx > 0 {
		slug = slug[:idx]
	}
	slug = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(slug)
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return "Recipe"
	}

	words := strings.Fields(slug)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
