package service

import (
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/util"
	"math"
	"time"
)

// SessionSummary 一场面试的汇总，用于写入 Attempt 与结果页
type SessionSummary struct {
	AverageScore          float64  `json:"averageScore"`
	TotalQuestions        int      `json:"totalQuestions"`
	CorrectAnswers        int      `json:"correctAnswers"`
	DurationMinutes       int      `json:"durationMinutes"`
	ConfidenceScore       *float64 `json:"confidenceScore,omitempty"`
	FacialExpressionScore *float64 `json:"facialExpressionScore,omitempty"`
	PerformanceLevel      string   `json:"performanceLevel"`
}

// Aggregate 没有评分的作答按 0 分计入平均；置信度与表情分只对有值的作答取平均
func Aggregate(entries []model.AnswerEntry, start, end time.Time) (*SessionSummary, error) {
	if len(entries) == 0 {
		return nil, util.ErrEmptySession
	}

	var total float64
	correct := 0
	for _, e := range entries {
		if e.Analysis == nil {
			continue
		}
		total += e.Analysis.Score
		if e.Analysis.Score >= CorrectAnswerThreshold {
			correct++
		}
	}
	avg := total / float64(len(entries))

	summary := &SessionSummary{
		AverageScore:          avg,
		TotalQuestions:        len(entries),
		CorrectAnswers:        correct,
		DurationMinutes:       durationMinutes(start, end),
		ConfidenceScore:       meanPresent(entries, func(e model.AnswerEntry) *float64 { return e.Confidence }),
		FacialExpressionScore: meanPresent(entries, func(e model.AnswerEntry) *float64 { return e.FacialExpression }),
		PerformanceLevel:      PerformanceLevel(avg),
	}
	return summary, nil
}

func durationMinutes(start, end time.Time) int {
	if start.IsZero() || end.Before(start) {
		return 0
	}
	ms := float64(end.Sub(start).Milliseconds())
	return int(math.Round(ms / 60000))
}

func meanPresent(entries []model.AnswerEntry, get func(model.AnswerEntry) *float64) *float64 {
	var sum float64
	n := 0
	for _, e := range entries {
		if v := get(e); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
