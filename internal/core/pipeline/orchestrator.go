package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meal-planner/internal/core/extract"
	"meal-planner/internal/core/normalize"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// Extractor 單層提取策略
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*extract.Payload, error)
}

// Discoverer 候選網址來源
type Discoverer interface {
	FindRecipeURLs(ctx context.Context, req *common.PlanRequest) []string
}

// Tier 提取層與其方法標籤
type Tier struct {
	Method    string
	Extractor Extractor
}

// 槽位狀態
type slotState int

const (
	stateDiscover slotState = iota
	stateExtracting
	stateNormalizing
	stateDone
)

// slot 一個請求槽位的狀態機
// 結果按槽位順序組裝，與完成順序無關
type slot struct {
	index  int
	url    string
	state  slotState
	tier   int
	recipe *common.Recipe
}

// sparePool 探索多抓的備用網址池
// 全層失敗的槽位可以領一個備用網址，把整條提取鏈重跑一次
type sparePool struct {
	mu   sync.Mutex
	urls []string
}

func (p *sparePool) take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return ""
	}
	u := p.urls[0]
	p.urls = p.urls[1:]
	return u
}

// Orchestrator 提取管線調度器
// 探索、有界併發的分層提取、正規化，串成一條永不硬失敗的產線
type Orchestrator struct {
	config    *config.Config
	discovery Discoverer
	tiers     []Tier
}

// NewOrchestrator 創建調度器
// tiers 依優先序排列，先成功者勝出
func NewOrchestrator(cfg *config.Config, discovery Discoverer, tiers []Tier) *Orchestrator {
	return &Orchestrator{
		config:    cfg,
		discovery: discovery,
		tiers:     tiers,
	}
}

// BuildRecipes 為一次計畫請求產出固定數量的標準食譜
// 每個槽位都會走到 Done：提取全滅就換占位食譜，絕不向上拋錯
func (o *Orchestrator) BuildRecipes(ctx context.Context, req *common.PlanRequest) []*common.Recipe {
	count := req.MealCount
	if count < 1 {
		return nil
	}

	urls := o.discovery.FindRecipeURLs(ctx, req)

	// 探索一無所獲：整批占位，直接收工
	if len(urls) == 0 {
		common.LogWarn("探索無結果，整批改用占位食譜",
			zap.Int("需求數", count),
		)
		recipes := make([]*common.Recipe, count)
		for i := range recipes {
			recipes[i] = BuildPlaceholder("", i)
		}
		return recipes
	}

	slots := make([]*slot, count)
	for i := range slots {
		s := &slot{index: i, state: stateDiscover}
		if i < len(urls) {
			s.url = urls[i]
		}
		slots[i] = s
	}
	spares := &sparePool{}
	if len(urls) > count {
		spares.urls = append(spares.urls, urls[count:]...)
	}

	o.processSlots(ctx, slots, spares)

	recipes := make([]*common.Recipe, count)
	for i, s := range slots {
		recipes[i] = s.recipe
	}

	common.LogInfo("提取管線完成",
		zap.Int("需求數", count),
		zap.Int("候選數", len(urls)),
	)
	return recipes
}

// processSlots 分批跑槽位，批內併發受限，批間固定停頓
func (o *Orchestrator) processSlots(ctx context.Context, slots []*slot, spares *sparePool) {
	batchSize := o.config.Pipeline.MaxConcurrent
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(slots); start += batchSize {
		end := start + batchSize
		if end > len(slots) {
			end = len(slots)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, s := range slots[start:end] {
			s := s
			g.Go(func() error {
				o.runSlot(gctx, s, spares)
				return nil
			})
		}
		g.Wait()

		// batch 之間停頓，壓低對來源站的瞬間請求量
		if end < len(slots) && o.config.Pipeline.BatchPause > 0 {
			select {
			case <-time.After(o.config.Pipeline.BatchPause):
			case <-ctx.Done():
			}
		}
	}
}

// runSlot 單一槽位走完整個狀態機
func (o *Orchestrator) runSlot(ctx context.Context, s *slot, spares *sparePool) {
	// 探索分到的網址不夠用，這個槽位直接占位
	if s.url == "" {
		s.state = stateNormalizing
		s.recipe = BuildPlaceholder("", s.index)
		s.state = stateDone
		return
	}

	s.state = stateExtracting
	payload, method := o.extractWithFallback(ctx, s)

	// 全層失敗時領一個備用網址，整條鏈只重跑一次
	if payload == nil {
		if spare := spares.take(); spare != "" {
			common.LogInfo("改用備用網址重試",
				zap.Int("槽位", s.index),
				zap.String("url", spare),
			)
			s.url = spare
			payload, method = o.extractWithFallback(ctx, s)
		}
	}

	s.state = stateNormalizing
	if payload == nil {
		s.recipe = BuildPlaceholder(s.url, s.index)
	} else {
		s.recipe = normalize.Normalize(payload, s.url, method)
	}
	s.state = stateDone
}

// ExtractRecipe 對單一網址跑完整提取鏈並標準化
// 全部層級都失敗時回傳占位食譜，不回傳錯誤
func (o *Orchestrator) ExtractRecipe(ctx context.Context, pageURL string) *common.Recipe {
	s := &slot{index: 0, url: pageURL, state: stateExtracting}
	payload, method := o.extractWithFallback(ctx, s)

	s.state = stateNormalizing
	if payload == nil {
		s.recipe = BuildPlaceholder(pageURL, 0)
	} else {
		s.recipe = normalize.Normalize(payload, pageURL, method)
	}
	s.state = stateDone
	return s.recipe
}

// extractWithFallback 依序嘗試各提取層，先成功者勝出
func (o *Orchestrator) extractWithFallback(ctx context.Context, s *slot) (*extract.Payload, string) {
	for i, tier := range o.tiers {
		s.tier = i + 1

		payload, err := tier.Extractor.Extract(ctx, s.url)
		if err == nil && payload.HasContent() {
			return payload, tier.Method
		}

		common.LogWarn("提取層失敗，往下降級",
			zap.Int("槽位", s.index),
			zap.String("層級", tier.Method),
			zap.String("url", s.url),
			zap.Error(err),
		)
	}
	return nil, ""
}
