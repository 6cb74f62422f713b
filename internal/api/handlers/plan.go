package handlers

import (
	"errors"
	"net/http"

	"meal-planner/internal/core/plan"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// PlanHandler 餐食計畫處理器
type PlanHandler struct {
	planService *plan.Service
}

// NewPlanHandler 創建餐食計畫處理器
func NewPlanHandler(planService *plan.Service) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// BuildPlan 產生一週餐食計畫
func (h *PlanHandler) BuildPlan(c *gin.Context) {
	// 獲取請求參數
	var req common.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrInvalidRequest.Error(),
		})
		return
	}

	resp, err := h.planService.BuildPlan(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if common.IsValidationError(err) {
			status = http.StatusBadRequest
		}
		var ce *common.CustomError
		if errors.As(err, &ce) && ce.Status > 0 {
			status = ce.Status
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
