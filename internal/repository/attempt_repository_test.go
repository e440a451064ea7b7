package repository

import (
	"testing"
	"time"

	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/testutil"
	"interview_assistant_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptRepositoryAnalytics(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	repo := NewAttemptRepository(db)
	user := testutil.CreateUser(t, db, "alice")
	other := testutil.CreateUser(t, db, "bob")

	base := time.Now().Add(-time.Hour)
	rows := []model.InterviewAttempt{
		{UserID: user.ID, Topic: "Go", Score: 8, TotalQuestions: 5, CorrectAnswers: 4, DurationMinutes: util.IntPtr(10), AttemptDate: base},
		{UserID: user.ID, Topic: "Go", Score: 6, TotalQuestions: 5, CorrectAnswers: 2, AttemptDate: base.Add(time.Minute)},
		{UserID: user.ID, Topic: "React", Score: 4, TotalQuestions: 5, CorrectAnswers: 1, DurationMinutes: util.IntPtr(20), ConfidenceScore: util.Float64Ptr(0.5), AttemptDate: base.Add(2 * time.Minute)},
		{UserID: other.ID, Topic: "Go", Score: 10, TotalQuestions: 5, CorrectAnswers: 5, AttemptDate: base},
	}
	for i := range rows {
		require.NoError(t, repo.Create(&rows[i]))
	}

	overall, err := repo.Overall(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, overall.TotalAttempts)
	require.NotNil(t, overall.AverageScore)
	assert.InDelta(t, 6.0, *overall.AverageScore, 1e-9)
	assert.InDelta(t, 8.0, *overall.BestScore, 1e-9)
	assert.InDelta(t, 4.0, *overall.WorstScore, 1e-9)
	require.NotNil(t, overall.AvgDuration)
	assert.InDelta(t, 15.0, *overall.AvgDuration, 1e-9)

	stats, err := repo.TopicStats(user.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Go", stats[0].Topic)
	assert.EqualValues(t, 2, stats[0].Attempts)
	assert.InDelta(t, 7.0, stats[0].AvgScore, 1e-9)

	recent, err := repo.Recent(user.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "React", recent[0].Topic)
	require.NotNil(t, recent[0].ConfidenceScore)
	assert.Nil(t, recent[1].ConfidenceScore)

	topics, err := repo.TopicsAttempted(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "React"}, topics)

	list, err := repo.ListByUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestAttemptRepositoryOverallEmpty(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	repo := NewAttemptRepository(db)
	user := testutil.CreateUser(t, db, "carol")

	overall, err := repo.Overall(user.ID)
	require.NoError(t, err)
	assert.Zero(t, overall.TotalAttempts)
	assert.Nil(t, overall.AverageScore)
	assert.Nil(t, overall.AvgDuration)
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(&model.User{Username: "dave", PasswordHash: "hash"}))

	user, err := repo.FindByUsername("dave")
	require.NoError(t, err)
	assert.Equal(t, "dave", user.Username)

	_, err = repo.FindByUsername("nobody")
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	exists, err := repo.ExistsByUsername("dave")
	require.NoError(t, err)
	assert.True(t, exists)
}
