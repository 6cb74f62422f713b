package costing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/pkg/common"
)

// job 一筆價格查詢工作
type job struct {
	ctx     context.Context
	name    string
	zipCode string
	result  chan jobResult
}

// jobResult 查詢結果
type jobResult struct {
	products []common.ProductMatch
	err      error
}

// Status 批次佇列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	BatchSize      int `json:"batch_size"`
}

// Batcher 價格查詢批次器
// 查詢先進佇列，單一 worker 按批次抽出處理，批間固定延遲
type Batcher struct {
	config    *config.Config
	source    ProductSource
	queue     chan *job
	done      chan struct{}
	processed int64
	closeOnce sync.Once
}

// NewBatcher 創建批次器並啟動 worker
func NewBatcher(cfg *config.Config, source ProductSource) *Batcher {
	b := &Batcher{
		config: cfg,
		source: source,
		queue:  make(chan *job, cfg.Pricing.QueueSize),
		done:   make(chan struct{}),
	}
	go b.worker()
	return b
}

// Lookup 排入一筆查詢並等待結果
// 佇列滿時直接回錯，不阻塞呼叫端
func (b *Batcher) Lookup(ctx context.Context, name, zipCode string) ([]common.ProductMatch, error) {
	if b == nil {
		return nil, common.ErrPricingDisabled
	}

	// 檢查佇列容量
	if len(b.queue) >= b.config.Pricing.QueueSize {
		return nil, fmt.Errorf("pricing queue is full")
	}

	j := &job{
		ctx:     ctx,
		name:    name,
		zipCode: zipCode,
		result:  make(chan jobResult, 1),
	}

	select {
	case b.queue <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, fmt.Errorf("pricing batcher is closed")
	}

	select {
	case res := <-j.result:
		return res.products, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, fmt.Errorf("pricing batcher is closed")
	}
}

// worker 批次抽出佇列中的工作並依序處理
func (b *Batcher) worker() {
	for {
		batch := b.nextBatch()
		if batch == nil {
			return
		}

		for _, j := range batch {
			products, err := b.source.SearchProducts(j.ctx, j.name, j.zipCode)
			atomic.AddInt64(&b.processed, 1)
			j.result <- jobResult{products: products, err: err}
		}

		common.LogDebug("價格批次處理完成",
			zap.Int("批次大小", len(batch)),
			zap.Int("佇列剩餘", len(b.queue)),
		)

		// 批次之間固定延遲，配合供應商的流量限制
		if b.config.Pricing.BatchDelay > 0 {
			select {
			case <-time.After(b.config.Pricing.BatchDelay):
			case <-b.done:
				return
			}
		}
	}
}

// nextBatch 取出至多一個批次的工作
// 第一筆阻塞等待，之後非阻塞掃空到批次上限
func (b *Batcher) nextBatch() []*job {
	size := b.config.Pricing.BatchSize
	if size < 1 {
		size = 1
	}

	var batch []*job
	select {
	case j := <-b.queue:
		batch = append(batch, j)
	case <-b.done:
		return nil
	}

	for len(batch) < size {
		select {
		case j := <-b.queue:
			batch = append(batch, j)
		default:
			return batch
		}
	}
	return batch
}

// Status 回報佇列狀態
func (b *Batcher) Status() *Status {
	if b == nil {
		return nil
	}
	return &Status{
		QueueLength:    len(b.queue),
		ProcessedCount: int(atomic.LoadInt64(&b.processed)),
		MaxQueueSize:   b.config.Pricing.QueueSize,
		BatchSize:      b.config.Pricing.BatchSize,
	}
}

// Close 關閉批次器
func (b *Batcher) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
