package discovery

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"meal-planner/internal/pkg/common"
)

// Engine 探索查詢使用的答案引擎
type Engine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// urlPattern 從引擎回應的自由文字裡撈出網址
var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// Service 食譜探索服務
// 把計畫限制組成查詢，從引擎回應裡解析候選網址
type Service struct {
	engine Engine
}

// NewService 創建探索服務
func NewService(engine Engine) *Service {
	return &Service{engine: engine}
}

// FindRecipeURLs 依限制條件找候選食譜頁
// 回傳有序去重的絕對網址，最多為需求數的兩倍，留給管線備援
// 引擎失敗或一無所獲時回傳空列表，降級交給調度器，不視為錯誤
func (s *Service) FindRecipeURLs(ctx context.Context, req *common.PlanRequest) []string {
	if s == nil || s.engine == nil || req == nil || req.MealCount < 1 {
		return nil
	}

	limit := req.MealCount * 2
	prompt := buildQuery(req, limit)

	text, err := s.engine.Complete(ctx, prompt)
	if err != nil {
		common.LogWarn("食譜探索失敗，改用占位食譜",
			zap.Error(err),
		)
		return nil
	}

	urls := parseURLs(text, limit)
	common.LogInfo("食譜探索完成",
		zap.Int("需求數", req.MealCount),
		zap.Int("候選數", len(urls)),
	)
	return urls
}

// buildQuery 把限制條件組成引擎查詢
func buildQuery(req *common.PlanRequest, limit int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Find %d individual recipe pages on well-known cooking sites.\n", limit)
	sb.WriteString("Criteria:\n")

	if len(req.Cuisines) > 0 {
		fmt.Fprintf(&sb, "- Cuisine: %s\n", common.StringSliceToString(req.Cuisines))
	}
	if len(req.DietaryRestrictions) > 0 {
		fmt.Fprintf(&sb, "- Dietary restrictions: %s\n", common.StringSliceToString(req.DietaryRestrictions))
	}
	if len(req.IncludeIngredients) > 0 {
		fmt.Fprintf(&sb, "- Must use: %s\n", common.StringSliceToString(req.IncludeIngredients))
	}
	if len(req.ExcludeIngredients) > 0 {
		fmt.Fprintf(&sb, "- Must not contain: %s\n", common.StringSliceToString(req.ExcludeIngredients))
	}
	if req.MaxTimeMinutes > 0 {
		fmt.Fprintf(&sb, "- Ready in under %d minutes\n", req.MaxTimeMinutes)
	}
	if req.HouseholdSize > 0 {
		fmt.Fprintf(&sb, "- Suitable for %d people\n", req.HouseholdSize)
	}

	sb.WriteString("\nReturn ONLY direct links to single recipe pages, one URL per line.\n")
	sb.WriteString("No search results, category pages, videos, or commentary.")

	return sb.String()
}

// parseURLs 從回應文字撈出合法的絕對網址，去重並截斷
func parseURLs(text string, limit int) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		// 清掉黏在結尾的標點
		m = strings.TrimRight(m, ".,;:!?")

		u, err := url.Parse(m)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}

		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}

		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out
}
