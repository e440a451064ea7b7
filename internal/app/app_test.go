package app

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		JWT:     config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Face:    config.FaceConfig{ServiceURL: "http://127.0.0.1:1", TimeoutSec: 1},
	}
}

func newTestApp(t *testing.T) (*App, *gorm.DB) {
	db := testutil.NewDB(t)
	return New(testConfig(t), db, nil), db
}

func do(t *testing.T, a *App, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func register(t *testing.T, a *App, username string) string {
	t.Helper()
	w, env := do(t, a, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestHealthAndTopics(t *testing.T) {
	a, _ := newTestApp(t)

	w, _ := do(t, a, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, a, http.MethodGet, "/api/topics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var topics []string
	require.NoError(t, json.Unmarshal(env.Data, &topics))
	assert.Contains(t, topics, "JavaScript")
	assert.Len(t, topics, 6)
}

func TestAuthFlow(t *testing.T) {
	a, _ := newTestApp(t)
	register(t, a, "alice")

	w, env := do(t, a, http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already exists", env.Message)

	w, _ = do(t, a, http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, a, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, a, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, a, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, a, http.MethodGet, "/api/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQuestionsAreNotRepeatedUntilPoolExhausted(t *testing.T) {
	a, _ := newTestApp(t)
	token := register(t, a, "carol")

	seen := map[uint]bool{}
	for i := 0; i < 3; i++ {
		w, env := do(t, a, http.MethodGet, "/api/questions/React?count=2", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var qs []model.Question
		require.NoError(t, json.Unmarshal(env.Data, &qs))
		require.Len(t, qs, 2)
		for _, q := range qs {
			assert.False(t, seen[q.ID], "question %d served twice", q.ID)
			seen[q.ID] = true
		}
	}

	w, env := do(t, a, http.MethodGet, "/api/questions/Unknown", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestAttemptsAndAnalytics(t *testing.T) {
	a, _ := newTestApp(t)
	token := register(t, a, "dave")

	w, _ := do(t, a, http.MethodPost, "/api/attempts", token, gin.H{"topic": "React", "score": 7.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, score := range []float64{6, 9} {
		w, env := do(t, a, http.MethodPost, "/api/attempts", token, gin.H{
			"topic": "React", "score": score, "totalQuestions": 5, "correctAnswers": 3, "durationMinutes": 10,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, string(env.Data), "Attempt saved successfully")
	}

	w, env := do(t, a, http.MethodGet, "/api/attempts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var attempts []model.InterviewAttempt
	require.NoError(t, json.Unmarshal(env.Data, &attempts))
	require.Len(t, attempts, 2)
	assert.Equal(t, 9.0, attempts[0].Score)

	w, env = do(t, a, http.MethodGet, "/api/analytics", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var analytics model.UserAnalytics
	require.NoError(t, json.Unmarshal(env.Data, &analytics))
	assert.EqualValues(t, 2, analytics.Overall.TotalAttempts)
	require.NotNil(t, analytics.Overall.AverageScore)
	assert.InDelta(t, 7.5, *analytics.Overall.AverageScore, 1e-9)
	require.Len(t, analytics.TopicStats, 1)

	w, env = do(t, a, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile model.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "dave", profile.Username)
	assert.Equal(t, 9.0, profile.BestScore)
	assert.Equal(t, []string{"React"}, profile.TopicsAttempted)
}

func TestInterviewEndpointsWithoutModel(t *testing.T) {
	a, _ := newTestApp(t)
	token := register(t, a, "erin")

	w, env := do(t, a, http.MethodPost, "/api/interview/questions", token, gin.H{"topic": "React", "count": 3})
	require.Equal(t, http.StatusOK, w.Code)
	var batch struct {
		Questions []model.GeneratedQuestion `json:"questions"`
		Source    string                    `json:"source"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, "fallback", batch.Source)
	assert.NotEmpty(t, batch.Questions)

	w, _ = do(t, a, http.MethodPost, "/api/interview/analyze", token, gin.H{"question": "q"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, a, http.MethodPost, "/api/interview/analyze", token, gin.H{"question": "What is JSX?", "answer": "JSX is a syntax extension"})
	require.Equal(t, http.StatusOK, w.Code)
	var analysis model.Analysis
	require.NoError(t, json.Unmarshal(env.Data, &analysis))
	assert.Equal(t, model.SourceFallback, analysis.Source)
	assert.GreaterOrEqual(t, analysis.Score, 5.0)

	w, _ = do(t, a, http.MethodPost, "/api/interview/complete", token, gin.H{"topic": "React", "entries": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	start := time.Now().Add(-10 * time.Minute).UnixMilli()
	w, env = do(t, a, http.MethodPost, "/api/interview/complete", token, gin.H{
		"topic":     "React",
		"mode":      "proctored",
		"startTime": start,
		"endTime":   start + 10*60000,
		"entries": []gin.H{
			{"questionId": "1", "answer": "a", "analysis": gin.H{"score": 8}, "confidence": 0.8},
			{"questionId": "2", "answer": "b", "analysis": gin.H{"score": 6}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result struct {
		AttemptID uint `json:"attemptId"`
		Summary   struct {
			AverageScore    float64  `json:"averageScore"`
			CorrectAnswers  int      `json:"correctAnswers"`
			DurationMinutes int      `json:"durationMinutes"`
			ConfidenceScore *float64 `json:"confidenceScore"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotZero(t, result.AttemptID)
	assert.Equal(t, 7.0, result.Summary.AverageScore)
	assert.Equal(t, 1, result.Summary.CorrectAnswers)
	assert.Equal(t, 10, result.Summary.DurationMinutes)
	require.NotNil(t, result.Summary.ConfidenceScore)
	assert.InDelta(t, 0.8, *result.Summary.ConfidenceScore, 1e-9)
}

func TestSpeechDisabled(t *testing.T) {
	a, _ := newTestApp(t)
	token := register(t, a, "frank")

	w, _ := do(t, a, http.MethodPost, "/api/speech/transcribe", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func pngBytes(t *testing.T, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(t *testing.T, a *App, path, token, field string, data []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "frame.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestProctorEndpoints(t *testing.T) {
	a, db := newTestApp(t)
	token := register(t, a, "grace")

	w, env := upload(t, a, "/api/proctor/classify", token, "image", pngBytes(t, color.RGBA{R: 180, G: 120, B: 90, A: 255}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"facePresent":true`)

	w, _ = upload(t, a, "/api/proctor/classify", token, "image", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	frame := pngBytes(t, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	w, env = upload(t, a, "/api/proctor/verify-live", token, "image", frame)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No enrollments found for user", env.Message)

	var user model.User
	require.NoError(t, db.Where("username = ?", "grace").First(&user).Error)
	require.NoError(t, db.Create(&model.FaceEmbedding{UserID: user.ID, EmbeddingJSON: "[1,0,0]", Model: "Facenet512"}).Error)

	// 人脸服务不可达
	w, _ = upload(t, a, "/api/proctor/verify-live", token, "image", frame)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestApplyConfigHotSwapsSettings(t *testing.T) {
	a, _ := newTestApp(t)

	cfg := testConfig(t)
	cfg.Allocator.DefaultCount = 2
	a.ApplyConfig(cfg)
	assert.Equal(t, 2, a.services.allocator.NormalizeCount(0))
}
