package handlers

import (
	"net/http"

	"meal-planner/internal/core/cache"

	"github.com/gin-gonic/gin"
)

// CacheHandler 緩存統計處理器
type CacheHandler struct {
	cacheManager *cache.CacheManager
}

// NewCacheHandler 創建緩存統計處理器
func NewCacheHandler(cacheManager *cache.CacheManager) *CacheHandler {
	return &CacheHandler{
		cacheManager: cacheManager,
	}
}

// Stats 回報記憶體緩存的使用情況
// 緩存停用時 GetStats 只會回報 enabled=false
func (h *CacheHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cacheManager.GetStats())
}
