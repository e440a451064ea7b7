package service

import (
	"encoding/json"
	"testing"

	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/testutil"
	"interview_assistant_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptCreateRequiresFields(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	s := NewAttemptService(repository.NewAttemptRepository(db))

	_, err := s.Create(user.ID, AttemptInput{Topic: "Go", Score: util.Float64Ptr(7)})
	assert.ErrorIs(t, err, util.ErrMissingFields)

	// 0 分是合法值
	attempt, err := s.Create(user.ID, AttemptInput{
		Topic:          "Go",
		Score:          util.Float64Ptr(0),
		TotalQuestions: util.IntPtr(5),
		CorrectAnswers: util.IntPtr(0),
		Answers:        json.RawMessage(`[{"answer":"x"}]`),
	})
	require.NoError(t, err)
	assert.NotZero(t, attempt.ID)
	assert.Equal(t, util.ModeNormal, attempt.Mode)
	assert.Equal(t, `[{"answer":"x"}]`, attempt.AnswersJSON)
}

func TestAttemptCompleteAggregatesAndStores(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	s := NewAttemptService(repository.NewAttemptRepository(db))

	entries := scored(8, 6, 9, 5, 7)
	entries[0].Confidence = util.Float64Ptr(0.8)

	res, err := s.Complete(user.ID, CompleteInput{
		Topic:     "JavaScript",
		Mode:      util.ModeProctored,
		StartTime: 1_700_000_000_000,
		EndTime:   1_700_000_000_000 + 10*60_000,
		Entries:   entries,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.CorrectAnswers)

	var stored model.InterviewAttempt
	require.NoError(t, db.First(&stored, res.AttemptID).Error)
	assert.InDelta(t, 7.0, stored.Score, 1e-9)
	assert.Equal(t, 5, stored.TotalQuestions)
	require.NotNil(t, stored.DurationMinutes)
	assert.Equal(t, 10, *stored.DurationMinutes)
	require.NotNil(t, stored.ConfidenceScore)
	assert.InDelta(t, 0.8, *stored.ConfidenceScore, 1e-9)
	assert.Nil(t, stored.FacialExpressionScore)
	assert.Equal(t, util.ModeProctored, stored.Mode)
}

func TestAttemptCompleteEmptySession(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	s := NewAttemptService(repository.NewAttemptRepository(db))

	_, err := s.Complete(user.ID, CompleteInput{Topic: "Go"})
	assert.ErrorIs(t, err, util.ErrEmptySession)

	var count int64
	db.Model(&model.InterviewAttempt{}).Count(&count)
	assert.Zero(t, count)
}

func TestProfileTotals(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	attempts := NewAttemptService(repository.NewAttemptRepository(db))
	analytics := NewAnalyticsService(repository.NewAttemptRepository(db), repository.NewUserRepository(db))

	profile, err := analytics.GetProfile(user.ID)
	require.NoError(t, err)
	assert.Zero(t, profile.TotalAttempts)
	assert.Empty(t, profile.TopicsAttempted)

	for _, score := range []float64{6, 9} {
		_, err := attempts.Create(user.ID, AttemptInput{
			Topic: "React", Score: util.Float64Ptr(score),
			TotalQuestions: util.IntPtr(5), CorrectAnswers: util.IntPtr(2),
		})
		require.NoError(t, err)
	}

	profile, err = analytics.GetProfile(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, profile.TotalAttempts)
	assert.InDelta(t, 7.5, profile.AverageScore, 1e-9)
	assert.InDelta(t, 9, profile.BestScore, 1e-9)
	assert.Equal(t, []string{"React"}, profile.TopicsAttempted)

	data, err := analytics.GetUserAnalytics(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, data.Overall.TotalAttempts)
	assert.Len(t, data.RecentAttempts, 2)
	assert.Len(t, data.TopicStats, 1)
}
