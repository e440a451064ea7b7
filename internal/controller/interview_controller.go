package controller

import (
	"errors"
	"interview_assistant_backend/internal/questionbank"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type InterviewController struct {
	AIService      *service.AIService
	AttemptService *service.AttemptService
}

func NewInterviewController(aiService *service.AIService, attemptService *service.AttemptService) *InterviewController {
	return &InterviewController{AIService: aiService, AttemptService: attemptService}
}

type GenerateQuestionsRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// GenerateQuestions godoc
// @Summary AI 出题
// @Description 模型不可用时返回内置题库中的 beginner 题目，source 字段区分来源
// @Tags 面试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateQuestionsRequest true "主题与数量"
// @Success 200 {object} util.Response{data=service.QuestionBatch} "成功"
// @Router /api/interview/questions [post]
func (c *InterviewController) GenerateQuestions(ctx *gin.Context) {
	var req GenerateQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = questionbank.DefaultTopic
	}
	count := req.Count
	if count <= 0 {
		count = service.DefaultQuestionCount
	}
	if count > service.MaxQuestionCount {
		count = service.MaxQuestionCount
	}

	util.Success(ctx, c.AIService.GenerateQuestions(ctx.Request.Context(), topic, count))
}

type AnalyzeRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AnalyzeAnswer godoc
// @Summary AI 评分
// @Description 模型评分后按篇幅与关键词加分；失败时按篇幅兜底评分并附带提示
// @Tags 面试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body AnalyzeRequest true "题目与回答"
// @Success 200 {object} util.Response{data=model.Analysis} "成功"
// @Failure 400 {object} util.Response "缺少题目或回答"
// @Router /api/interview/analyze [post]
func (c *InterviewController) AnalyzeAnswer(ctx *gin.Context) {
	var req AnalyzeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		util.BadRequest(ctx, "Question and answer are required")
		return
	}

	util.Success(ctx, c.AIService.AnalyzeAnswer(ctx.Request.Context(), req.Question, req.Answer))
}

// Complete godoc
// @Summary 结束面试
// @Description 汇总各题得分、置信度与表情分，写入面试记录并返回总结
// @Tags 面试
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CompleteInput true "本场面试的全部回答"
// @Success 201 {object} util.Response{data=service.CompleteResult} "成功"
// @Failure 400 {object} util.Response "没有任何回答"
// @Router /api/interview/complete [post]
func (c *InterviewController) Complete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CompleteInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.Complete(claims.UserID, req)
	switch {
	case errors.Is(err, util.ErrEmptySession):
		util.BadRequest(ctx, "No answers were recorded for this session")
	case errors.Is(err, util.ErrMissingFields):
		util.BadRequest(ctx, "Topic is required")
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Created(ctx, result)
	}
}
