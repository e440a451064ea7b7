package service

import (
	"testing"
	"time"

	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(scores ...float64) []model.AnswerEntry {
	entries := make([]model.AnswerEntry, 0, len(scores))
	for _, s := range scores {
		entries = append(entries, model.AnswerEntry{Analysis: &model.Analysis{Score: s}})
	}
	return entries
}

func TestAggregateScores(t *testing.T) {
	start := time.Unix(0, 0)
	end := start.Add(4*time.Minute + 31*time.Second)

	summary, err := Aggregate(scored(8, 6, 9, 5, 7), start, end)
	require.NoError(t, err)

	assert.InDelta(t, 7.0, summary.AverageScore, 1e-9)
	assert.Equal(t, 3, summary.CorrectAnswers)
	assert.Equal(t, 5, summary.TotalQuestions)
	assert.Equal(t, 5, summary.DurationMinutes)
	assert.Equal(t, "Good", summary.PerformanceLevel)
	assert.Nil(t, summary.ConfidenceScore)
	assert.Nil(t, summary.FacialExpressionScore)
}

func TestAggregateEmptySession(t *testing.T) {
	_, err := Aggregate(nil, time.Now(), time.Now())
	assert.ErrorIs(t, err, util.ErrEmptySession)
}

func TestAggregateUnscoredEntriesCountAsZero(t *testing.T) {
	entries := scored(9, 9)
	entries = append(entries, model.AnswerEntry{Text: "skipped"})

	summary, err := Aggregate(entries, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, summary.AverageScore, 1e-9)
	assert.Equal(t, 2, summary.CorrectAnswers)
	assert.Zero(t, summary.DurationMinutes)
}

func TestAggregateOptionalMeansExcludeMissing(t *testing.T) {
	entries := scored(8, 8, 8)
	entries[0].Confidence = util.Float64Ptr(0.9)
	entries[2].Confidence = util.Float64Ptr(0.5)
	entries[1].FacialExpression = util.Float64Ptr(0.3)

	summary, err := Aggregate(entries, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, summary.ConfidenceScore)
	assert.InDelta(t, 0.7, *summary.ConfidenceScore, 1e-9)
	require.NotNil(t, summary.FacialExpressionScore)
	assert.InDelta(t, 0.3, *summary.FacialExpressionScore, 1e-9)
	assert.Equal(t, "Excellent", summary.PerformanceLevel)
}
