package controller

import (
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService}
}

// GetAnalytics godoc
// @Summary 面试数据分析
// @Description 总体统计、按主题统计以及最近 20 次面试
// @Tags 数据分析
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.UserAnalytics} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/analytics [get]
func (c *AnalyticsController) GetAnalytics(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	analytics, err := c.AnalyticsService.GetUserAnalytics(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}
