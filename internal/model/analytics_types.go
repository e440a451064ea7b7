package model

import "time"

type OverallStats struct {
	TotalAttempts int64    `json:"totalAttempts"`
	AverageScore  *float64 `json:"averageScore"`
	BestScore     *float64 `json:"bestScore"`
	WorstScore    *float64 `json:"worstScore"`
	AvgDuration   *float64 `json:"avgDuration"`
}

type TopicStat struct {
	Topic      string  `json:"topic"`
	Attempts   int64   `json:"attempts"`
	AvgScore   float64 `json:"avgScore"`
	BestScore  float64 `json:"bestScore"`
	WorstScore float64 `json:"worstScore"`
}

type RecentAttempt struct {
	Score                 float64   `json:"score"`
	AttemptDate           time.Time `json:"attemptDate"`
	Topic                 string    `json:"topic"`
	ConfidenceScore       *float64  `json:"confidenceScore"`
	FacialExpressionScore *float64  `json:"facialExpressionScore"`
}

type UserAnalytics struct {
	Overall        OverallStats    `json:"overall"`
	TopicStats     []TopicStat     `json:"topicStats"`
	RecentAttempts []RecentAttempt `json:"recentAttempts"`
}

type UserProfile struct {
	ID              uint      `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	TotalAttempts   int64     `json:"totalAttempts"`
	AverageScore    float64   `json:"averageScore"`
	BestScore       float64   `json:"bestScore"`
	TopicsAttempted []string  `json:"topicsAttempted"`
}
