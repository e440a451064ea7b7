package controller

import (
	"errors"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	AnalyticsService *service.AnalyticsService
}

func NewUserController(analyticsService *service.AnalyticsService) *UserController {
	return &UserController{AnalyticsService: analyticsService}
}

// GetProfile godoc
// @Summary 获取个人资料
// @Description 账号信息以及面试次数、平均分、最高分、练习过的主题
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.UserProfile} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.AnalyticsService.GetProfile(claims.UserID)
	if errors.Is(err, util.ErrUserNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}
