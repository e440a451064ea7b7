package repository

import (
	"interview_assistant_backend/internal/model"

	"gorm.io/gorm"
)

const RecentAttemptsLimit = 20

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.InterviewAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) ListByUser(userID uint) ([]model.InterviewAttempt, error) {
	var attempts []model.InterviewAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("attempt_date DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}

// Overall 没有记录时各聚合值为 nil
func (r *AttemptRepository) Overall(userID uint) (*model.OverallStats, error) {
	var stats model.OverallStats
	err := r.DB.Model(&model.InterviewAttempt{}).
		Select(`COUNT(*) AS total_attempts,
			AVG(score) AS average_score,
			MAX(score) AS best_score,
			MIN(score) AS worst_score,
			AVG(duration_minutes) AS avg_duration`).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *AttemptRepository) TopicStats(userID uint) ([]model.TopicStat, error) {
	stats := []model.TopicStat{}
	err := r.DB.Model(&model.InterviewAttempt{}).
		Select(`topic,
			COUNT(*) AS attempts,
			AVG(score) AS avg_score,
			MAX(score) AS best_score,
			MIN(score) AS worst_score`).
		Where("user_id = ?", userID).
		Group("topic").
		Order("attempts DESC, topic").
		Scan(&stats).Error
	return stats, err
}

func (r *AttemptRepository) Recent(userID uint, limit int) ([]model.RecentAttempt, error) {
	if limit <= 0 {
		limit = RecentAttemptsLimit
	}
	recent := []model.RecentAttempt{}
	err := r.DB.Model(&model.InterviewAttempt{}).
		Select("score, attempt_date, topic, confidence_score, facial_expression_score").
		Where("user_id = ?", userID).
		Order("attempt_date DESC, id DESC").
		Limit(limit).
		Scan(&recent).Error
	return recent, err
}

func (r *AttemptRepository) TopicsAttempted(userID uint) ([]string, error) {
	topics := []string{}
	err := r.DB.Model(&model.InterviewAttempt{}).
		Where("user_id = ?", userID).
		Distinct("topic").
		Order("topic").
		Pluck("topic", &topics).Error
	return topics, err
}
