package controller

import (
	"errors"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	Allocator *service.AllocatorService
}

func NewQuestionController(allocator *service.AllocatorService) *QuestionController {
	return &QuestionController{Allocator: allocator}
}

// GetTopics godoc
// @Summary 题库主题列表
// @Tags 题库
// @Produce  json
// @Success 200 {object} util.Response{data=[]string} "成功"
// @Router /api/topics [get]
func (c *QuestionController) GetTopics(ctx *gin.Context) {
	topics, err := c.Allocator.Topics()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// GetQuestions godoc
// @Summary 抽取面试题
// @Description 同一用户在题库用完之前不会重复抽到同一道题，用完后自动重置
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Param   topic path string true "主题"
// @Param   count query int false "题目数量，默认 5，最多 50"
// @Success 200 {object} util.Response{data=[]model.Question} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Failure 503 {object} util.Response "抽题繁忙"
// @Router /api/questions/{topic} [get]
func (c *QuestionController) GetQuestions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	count := util.ParseIntDefault(ctx.Query("count"), service.DefaultQuestionCount)
	questions, err := c.Allocator.Allocate(ctx.Request.Context(), claims.UserID, ctx.Param("topic"), count)
	if errors.Is(err, util.ErrLockTimeout) {
		util.Error(ctx, http.StatusServiceUnavailable, "Question allocation is busy, please retry")
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}
