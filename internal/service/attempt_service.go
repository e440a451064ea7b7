package service

import (
	"encoding/json"
	"fmt"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AttemptInput 直接提交的面试记录，必填字段用指针区分缺失与零值
type AttemptInput struct {
	Topic                 string          `json:"topic"`
	Score                 *float64        `json:"score"`
	TotalQuestions        *int            `json:"totalQuestions"`
	CorrectAnswers        *int            `json:"correctAnswers"`
	DurationMinutes       *int            `json:"durationMinutes"`
	ConfidenceScore       *float64        `json:"confidenceScore"`
	FacialExpressionScore *float64        `json:"facialExpressionScore"`
	Mode                  string          `json:"mode"`
	Answers               json.RawMessage `json:"answers" swaggertype:"array,object"`
}

// CompleteInput 结束一场面试，StartTime/EndTime 为毫秒时间戳
type CompleteInput struct {
	Topic     string              `json:"topic"`
	Mode      string              `json:"mode"`
	StartTime int64               `json:"startTime"`
	EndTime   int64               `json:"endTime"`
	Entries   []model.AnswerEntry `json:"entries"`
}

type CompleteResult struct {
	AttemptID uint            `json:"attemptId"`
	Summary   *SessionSummary `json:"summary"`
}

type AttemptService struct {
	AttemptRepo *repository.AttemptRepository
}

func NewAttemptService(attemptRepo *repository.AttemptRepository) *AttemptService {
	return &AttemptService{AttemptRepo: attemptRepo}
}

func normalizeMode(mode string) string {
	if mode == util.ModeProctored {
		return util.ModeProctored
	}
	return util.ModeNormal
}

func (s *AttemptService) Create(userID uint, in AttemptInput) (*model.InterviewAttempt, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" || in.Score == nil || in.TotalQuestions == nil || in.CorrectAnswers == nil {
		return nil, util.ErrMissingFields
	}

	attempt := &model.InterviewAttempt{
		UserID:                userID,
		Topic:                 topic,
		Score:                 *in.Score,
		TotalQuestions:        *in.TotalQuestions,
		CorrectAnswers:        *in.CorrectAnswers,
		DurationMinutes:       in.DurationMinutes,
		ConfidenceScore:       in.ConfidenceScore,
		FacialExpressionScore: in.FacialExpressionScore,
		Mode:                  normalizeMode(in.Mode),
	}
	if len(in.Answers) > 0 && string(in.Answers) != "null" {
		attempt.AnswersJSON = string(in.Answers)
	}

	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Complete 汇总一场面试并写入 Attempt
func (s *AttemptService) Complete(userID uint, in CompleteInput) (*CompleteResult, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, util.ErrMissingFields
	}

	start := time.UnixMilli(in.StartTime)
	end := time.UnixMilli(in.EndTime)
	if in.StartTime == 0 {
		start = time.Time{}
	}

	summary, err := Aggregate(in.Entries, start, end)
	if err != nil {
		return nil, err
	}

	answers, err := json.Marshal(in.Entries)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	duration := summary.DurationMinutes
	attempt := &model.InterviewAttempt{
		UserID:                userID,
		Topic:                 topic,
		Score:                 summary.AverageScore,
		TotalQuestions:        summary.TotalQuestions,
		CorrectAnswers:        summary.CorrectAnswers,
		DurationMinutes:       &duration,
		ConfidenceScore:       summary.ConfidenceScore,
		FacialExpressionScore: summary.FacialExpressionScore,
		Mode:                  normalizeMode(in.Mode),
		AnswersJSON:           string(answers),
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}

	logger.Log.Info("Interview completed",
		zap.Uint("userID", userID),
		zap.String("topic", topic),
		zap.Float64("score", summary.AverageScore),
		zap.Int("correct", summary.CorrectAnswers),
	)

	return &CompleteResult{AttemptID: attempt.ID, Summary: summary}, nil
}

func (s *AttemptService) List(userID uint) ([]model.InterviewAttempt, error) {
	return s.AttemptRepo.ListByUser(userID)
}
