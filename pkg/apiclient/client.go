// Package apiclient 面试后端的 HTTP 客户端，供终端练习程序使用
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"interview_assistant_backend/internal/model"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var ErrNotLoggedIn = errors.New("not logged in")

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *Session
}

func New(baseURL string, session *Session) *Client {
	if session == nil {
		session = &Session{}
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		Session:    session,
	}
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type QuestionBatch struct {
	Questions []model.GeneratedQuestion `json:"questions"`
	Source    model.AnalysisSource      `json:"source"`
}

type CompleteRequest struct {
	Topic     string              `json:"topic"`
	Mode      string              `json:"mode"`
	StartTime int64               `json:"startTime"`
	EndTime   int64               `json:"endTime"`
	Entries   []model.AnswerEntry `json:"entries"`
}

type Summary struct {
	AverageScore          float64  `json:"averageScore"`
	TotalQuestions        int      `json:"totalQuestions"`
	CorrectAnswers        int      `json:"correctAnswers"`
	DurationMinutes       int      `json:"durationMinutes"`
	ConfidenceScore       *float64 `json:"confidenceScore"`
	FacialExpressionScore *float64 `json:"facialExpressionScore"`
	PerformanceLevel      string   `json:"performanceLevel"`
}

type CompleteResponse struct {
	AttemptID uint     `json:"attemptId"`
	Summary   *Summary `json:"summary"`
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.Session.Token()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	// 令牌被拒绝：清除本地登录态，调用方据此回到登录
	if auth && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		if err := c.Session.Clear(); err != nil {
			return fmt.Errorf("%w: clear session: %v", ErrNotLoggedIn, err)
		}
		return fmt.Errorf("%w: %w", ErrNotLoggedIn, &APIError{Status: resp.StatusCode, Message: env.Message})
	}

	if decodeErr != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path, username, password, email string) (*AuthResponse, error) {
	body := map[string]string{"username": username, "password": password}
	if email != "" {
		body["email"] = email
	}
	var res AuthResponse
	if err := c.do(ctx, http.MethodPost, path, false, body, &res); err != nil {
		return nil, err
	}
	if err := c.Session.Set(res.Token, res.User.Username); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Register(ctx context.Context, username, password, email string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/register", username, password, email)
}

func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/login", username, password, "")
}

func (c *Client) Logout() error {
	return c.Session.Clear()
}

func (c *Client) Topics(ctx context.Context) ([]string, error) {
	var topics []string
	err := c.do(ctx, http.MethodGet, "/api/topics", false, nil, &topics)
	return topics, err
}

// Questions 从题库抽题（不重复）
func (c *Client) Questions(ctx context.Context, topic string, count int) ([]model.Question, error) {
	var qs []model.Question
	path := "/api/questions/" + url.PathEscape(topic) + "?count=" + strconv.Itoa(count)
	err := c.do(ctx, http.MethodGet, path, true, nil, &qs)
	return qs, err
}

// GenerateQuestions 模型出题，失败时服务端返回兜底题
func (c *Client) GenerateQuestions(ctx context.Context, topic string, count int) (*QuestionBatch, error) {
	var batch QuestionBatch
	err := c.do(ctx, http.MethodPost, "/api/interview/questions", true, map[string]interface{}{"topic": topic, "count": count}, &batch)
	return &batch, err
}

func (c *Client) Analyze(ctx context.Context, question, answer string) (*model.Analysis, error) {
	var a model.Analysis
	err := c.do(ctx, http.MethodPost, "/api/interview/analyze", true, map[string]string{"question": question, "answer": answer}, &a)
	return &a, err
}

func (c *Client) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	var res CompleteResponse
	err := c.do(ctx, http.MethodPost, "/api/interview/complete", true, req, &res)
	return &res, err
}

func (c *Client) Attempts(ctx context.Context) ([]model.InterviewAttempt, error) {
	var attempts []model.InterviewAttempt
	err := c.do(ctx, http.MethodGet, "/api/attempts", true, nil, &attempts)
	return attempts, err
}

func (c *Client) Analytics(ctx context.Context) (*model.UserAnalytics, error) {
	var a model.UserAnalytics
	err := c.do(ctx, http.MethodGet, "/api/analytics", true, nil, &a)
	return &a, err
}

func (c *Client) Profile(ctx context.Context) (*model.UserProfile, error) {
	var p model.UserProfile
	err := c.do(ctx, http.MethodGet, "/api/profile", true, nil, &p)
	return &p, err
}
