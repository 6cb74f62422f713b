package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"meal-planner/internal/core/retry"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// StructuredExtractor 結構化資料提取層
// 抓取渲染後的 HTML，解析 @type 含 Recipe 的 JSON-LD 節點，
// 再以 Open Graph 與 canonical 連結補齊圖片和來源網址
type StructuredExtractor struct {
	config *config.Config
	render PageFetcher
}

// NewStructuredExtractor 創建結構化資料提取層
func NewStructuredExtractor(cfg *config.Config, render PageFetcher) *StructuredExtractor {
	return &StructuredExtractor{
		config: cfg,
		render: render,
	}
}

// pageMeta 頁面層級的後備中繼資料
type pageMeta struct {
	image     string // og:image
	url       string // og:url 或 canonical
	canonical string
}

// Extract 對單一 URL 執行結構化資料提取
func (e *StructuredExtractor) Extract(ctx context.Context, pageURL string) (*Payload, error) {
	start := time.Now()

	var page string
	err := retry.Do(ctx, retryConfig(e.config), func(ctx context.Context) error {
		body, err := e.render.FetchHTML(ctx, pageURL)
		if err != nil {
			return err
		}
		page = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page for structured extraction: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	blocks := collectJSONLD(doc)
	meta := collectMeta(doc)

	node := findRecipeInBlocks(blocks)
	if node == nil {
		return nil, fmt.Errorf("no structured recipe data on page")
	}

	payload := payloadFromNode(node)

	// 節點缺圖片或來源時用頁面中繼資料補齊，僅限這兩個欄位
	if !rawPresent(payload.Image) && meta.image != "" {
		payload.Image = mustRaw(meta.image)
	}
	if !rawPresent(payload.URL) {
		if meta.canonical != "" {
			payload.URL = mustRaw(meta.canonical)
		} else if meta.url != "" {
			payload.URL = mustRaw(meta.url)
		}
	}

	if !payload.HasContent() {
		return nil, common.ErrEmptyRecipe
	}

	common.LogInfo("結構化資料提取成功",
		zap.String("url", pageURL),
		zap.Int("jsonld_blocks", len(blocks)),
		zap.Duration("耗時", time.Since(start)),
	)

	return payload, nil
}

// collectJSONLD 走訪 DOM 收集所有 JSON-LD script 區塊的內文
func collectJSONLD(doc *html.Node) []string {
	var blocks []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "type" && strings.EqualFold(strings.TrimSpace(attr.Val), "application/ld+json") {
					if text := nodeText(n); strings.TrimSpace(text) != "" {
						blocks = append(blocks, text)
					}
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return blocks
}

// collectMeta 走訪 DOM 收集 Open Graph 與 canonical 中繼資料
func collectMeta(doc *html.Node) pageMeta {
	var meta pageMeta

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var property, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property", "name":
						property = attr.Val
					case "content":
						content = attr.Val
					}
				}
				switch property {
				case "og:image":
					if meta.image == "" {
						meta.image = content
					}
				case "og:url":
					if meta.url == "" {
						meta.url = content
					}
				}
			case "link":
				var rel, href string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "rel":
						rel = attr.Val
					case "href":
						href = attr.Val
					}
				}
				if strings.EqualFold(rel, "canonical") && meta.canonical == "" {
					meta.canonical = href
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return meta
}

// nodeText 取出節點底下的純文字內容
func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// findRecipeInBlocks 在所有 JSON-LD 區塊中找第一個食譜節點
// 無法解析的區塊直接略過，頁面上常混著壞掉的標記
func findRecipeInBlocks(blocks []string) map[string]interface{} {
	for _, block := range blocks {
		var v interface{}
		if err := json.Unmarshal([]byte(block), &v); err != nil {
			common.LogDebug("略過無法解析的 JSON-LD 區塊", zap.Error(err))
			continue
		}
		if node := findRecipeNode(v); node != nil {
			return node
		}
	}
	return nil
}

// findRecipeNode 遞迴尋找 @type 含 Recipe 的節點
// 支援頂層物件、陣列與 @graph 三種包法
func findRecipeNode(v interface{}) map[string]interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if typeContains(val["@type"], "recipe") {
			return val
		}
		if graph, ok := val["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if node := findRecipeNode(item); node != nil {
					return node
				}
			}
		}
	case []interface{}:
		for _, item := range val {
			if node := findRecipeNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

// typeContains 判斷 @type 是否包含指定型別，字串或字串陣列皆可
func typeContains(t interface{}, want string) bool {
	switch val := t.(type) {
	case string:
		return strings.Contains(strings.ToLower(val), want)
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.Contains(strings.ToLower(s), want) {
				return true
			}
		}
	}
	return false
}

// payloadFromNode 將 schema.org 食譜節點轉成寬鬆負載
func payloadFromNode(node map[string]interface{}) *Payload {
	p := &Payload{
		Name:             rawOf(node["name"]),
		Description:      rawOf(node["description"]),
		RecipeCuisine:    rawOf(node["recipeCuisine"]),
		RecipeIngredient: rawOf(node["recipeIngredient"]),
		RecipeYield:      rawOf(node["recipeYield"]),
		TotalTime:        rawOf(node["totalTime"]),
		CookTime:         rawOf(node["cookTime"]),
	}

	// HowToStep 與 HowToSection 攤平成字串陣列
	if steps := flattenInstructions(node["recipeInstructions"]); len(steps) > 0 {
		p.RecipeInstructions = mustRaw(steps)
	}

	if img := imageURLOf(node["image"]); img != "" {
		p.Image = mustRaw(img)
	}
	if u, ok := node["url"].(string); ok && strings.TrimSpace(u) != "" {
		p.URL = mustRaw(u)
	}

	return p
}

// flattenInstructions 攤平 recipeInstructions 的各種包法
// 字串、字串陣列、HowToStep 陣列、HowToSection 巢狀、ItemList 都收斂成步驟列表
func flattenInstructions(v interface{}) []string {
	var steps []string

	var walk func(item interface{})
	walk = func(item interface{}) {
		switch val := item.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				steps = append(steps, s)
			}
		case []interface{}:
			for _, child := range val {
				walk(child)
			}
		case map[string]interface{}:
			// 區段與列表往下包含步驟
			if children, ok := val["itemListElement"].([]interface{}); ok {
				for _, child := range children {
					walk(child)
				}
				return
			}
			if text, ok := val["text"].(string); ok && strings.TrimSpace(text) != "" {
				steps = append(steps, strings.TrimSpace(text))
				return
			}
			if name, ok := val["name"].(string); ok && strings.TrimSpace(name) != "" {
				steps = append(steps, strings.TrimSpace(name))
			}
		}
	}
	walk(v)

	return steps
}

// imageURLOf 從 schema.org 的圖片欄位取出網址
// 可能是字串、字串陣列或 ImageObject
func imageURLOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []interface{}:
		for _, item := range val {
			if u := imageURLOf(item); u != "" {
				return u
			}
		}
	case map[string]interface{}:
		if u, ok := val["url"].(string); ok {
			return strings.TrimSpace(u)
		}
	}
	return ""
}

// rawOf 將任意值轉回原始 JSON，nil 保持缺漏
func rawOf(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	return mustRaw(v)
}

// mustRaw 序列化已知可序列化的值
func mustRaw(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
