package recipe

import (
	"errors"
	"net/http"

	"meal-planner/internal/core/costing"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// CostHandler 食譜成本試算處理器
type CostHandler struct {
	costingService *costing.Service
}

// NewCostHandler 創建成本試算處理器
func NewCostHandler(costingService *costing.Service) *CostHandler {
	return &CostHandler{
		costingService: costingService,
	}
}

// Cost 為既有食譜補上每項食材的價格與總成本
func (h *CostHandler) Cost(c *gin.Context) {
	// 獲取請求參數
	var req struct {
		Recipe  *common.Recipe `json:"recipe" binding:"required"`
		ZipCode string         `json:"zipCode"`
		Mode    string         `json:"mode"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Error(),
		})
		return
	}

	if err := h.costingService.PriceRecipe(c.Request.Context(), req.Recipe, req.ZipCode, req.Mode); err != nil {
		if errors.Is(err, common.ErrPricingDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": err.Error(),
				"code":  common.ErrPricingDisabled.Code,
			})
			return
		}
		if common.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe": req.Recipe,
	})
}
