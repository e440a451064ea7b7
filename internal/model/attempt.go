package model

import "time"

// InterviewAttempt 一次完成的面试，写入后不再修改
// swagger:model InterviewAttempt
type InterviewAttempt struct {
	ID                    uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                uint      `gorm:"index;not null" json:"userId"`
	Topic                 string    `gorm:"size:100;index;not null" json:"topic"`
	Score                 float64   `gorm:"not null" json:"score"`
	TotalQuestions        int       `gorm:"not null" json:"totalQuestions"`
	CorrectAnswers        int       `gorm:"not null" json:"correctAnswers"`
	DurationMinutes       *int      `json:"durationMinutes,omitempty"`
	ConfidenceScore       *float64  `json:"confidenceScore,omitempty"`
	FacialExpressionScore *float64  `json:"facialExpressionScore,omitempty"`
	Mode                  string    `gorm:"size:20" json:"mode,omitempty"`
	AnswersJSON           string    `gorm:"type:text" json:"-"`
	AttemptDate           time.Time `gorm:"autoCreateTime;index" json:"attemptDate"`
}

func (InterviewAttempt) TableName() string {
	return "interview_attempts"
}
