package service

import (
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
)

type AnalyticsService struct {
	AttemptRepo *repository.AttemptRepository
	UserRepo    *repository.UserRepository
}

func NewAnalyticsService(attemptRepo *repository.AttemptRepository, userRepo *repository.UserRepository) *AnalyticsService {
	return &AnalyticsService{
		AttemptRepo: attemptRepo,
		UserRepo:    userRepo,
	}
}

func (s *AnalyticsService) GetUserAnalytics(userID uint) (*model.UserAnalytics, error) {
	overall, err := s.AttemptRepo.Overall(userID)
	if err != nil {
		return nil, err
	}
	topicStats, err := s.AttemptRepo.TopicStats(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.AttemptRepo.Recent(userID, repository.RecentAttemptsLimit)
	if err != nil {
		return nil, err
	}

	return &model.UserAnalytics{
		Overall:        *overall,
		TopicStats:     topicStats,
		RecentAttempts: recent,
	}, nil
}

// GetProfile 用户信息加上练习汇总，没有记录时分数为 0
func (s *AnalyticsService) GetProfile(userID uint) (*model.UserProfile, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	overall, err := s.AttemptRepo.Overall(userID)
	if err != nil {
		return nil, err
	}
	topics, err := s.AttemptRepo.TopicsAttempted(userID)
	if err != nil {
		return nil, err
	}

	profile := &model.UserProfile{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		CreatedAt:       user.CreatedAt,
		TotalAttempts:   overall.TotalAttempts,
		TopicsAttempted: topics,
	}
	if overall.AverageScore != nil {
		profile.AverageScore = *overall.AverageScore
	}
	if overall.BestScore != nil {
		profile.BestScore = *overall.BestScore
	}
	return profile, nil
}
