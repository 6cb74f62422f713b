package recipe

import (
	"net/http"

	"meal-planner/internal/core/normalize"
	"meal-planner/internal/core/pipeline"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// ExtractHandler 單篇食譜提取處理器
type ExtractHandler struct {
	orchestrator *pipeline.Orchestrator
}

// NewExtractHandler 創建食譜提取處理器
func NewExtractHandler(orchestrator *pipeline.Orchestrator) *ExtractHandler {
	return &ExtractHandler{
		orchestrator: orchestrator,
	}
}

// Extract 從來源網頁提取單篇食譜
func (h *ExtractHandler) Extract(c *gin.Context) {
	// 獲取請求參數
	var req struct {
		URL string `json:"url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Error(),
		})
		return
	}

	// 網址不合法就不用進提取鏈
	if normalize.NormalizeURL(req.URL, "") == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidURL.Error(),
			"code":  common.ErrInvalidURL.Code,
		})
		return
	}

	result := h.orchestrator.ExtractRecipe(c.Request.Context(), req.URL)

	c.JSON(http.StatusOK, gin.H{
		"recipe": result,
	})
}
