package controller

import (
	"errors"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// CreateAttempt godoc
// @Summary 保存面试记录
// @Tags 面试记录
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AttemptInput true "面试结果"
// @Success 201 {object} util.Response{data=object} "保存成功"
// @Failure 400 {object} util.Response "缺少必填字段"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/attempts [post]
func (c *AttemptController) CreateAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AttemptInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.AttemptService.Create(claims.UserID, req)
	if errors.Is(err, util.ErrMissingFields) {
		util.BadRequest(ctx, "Missing required fields")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"id": attempt.ID, "message": "Attempt saved successfully"})
}

// ListAttempts godoc
// @Summary 面试记录列表
// @Description 按时间倒序
// @Tags 面试记录
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.InterviewAttempt} "成功"
// @Router /api/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempts, err := c.AttemptService.List(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
