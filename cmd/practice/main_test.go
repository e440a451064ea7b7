package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interview_assistant_backend/internal/app"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/testutil"
	"interview_assistant_backend/pkg/apiclient"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAnswerStopsAtEmptyLine(t *testing.T) {
	lines := readLines(strings.NewReader("first line\nsecond line\n\nnext answer\n"))

	answer, timedOut := readAnswer(lines, time.Second)
	assert.False(t, timedOut)
	assert.Equal(t, "first line\nsecond line", answer)

	answer, _ = readAnswer(lines, time.Second)
	assert.Equal(t, "next answer", answer)
}

func TestReadAnswerTimesOut(t *testing.T) {
	lines := make(chan string, 1)
	lines <- "partial"

	answer, timedOut := readAnswer(lines, 20*time.Millisecond)
	assert.True(t, timedOut)
	assert.Equal(t, "partial", answer)
}

func TestAnalysisTextSubstitutesEmptyAnswer(t *testing.T) {
	assert.Equal(t, noAnswerText, analysisText(""))
	assert.Equal(t, noAnswerText, analysisText("  \n "))
	assert.Equal(t, "goroutines are cheap", analysisText("goroutines are cheap"))
}

func TestTimedOutAnswerIsStillScored(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWT:     config.JWTConfig{Secret: "practice-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
	}
	srv := httptest.NewServer(app.New(cfg, testutil.NewDB(t), nil).Router)
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL, nil)
	_, err := client.Register(context.Background(), "kim", "secret123", "")
	require.NoError(t, err)

	analysis, err := client.Analyze(context.Background(), "What is a closure?", analysisText(""))
	require.NoError(t, err)
	assert.Equal(t, model.SourceFallback, analysis.Source)
	assert.Equal(t, 5.0, analysis.Score)
}
