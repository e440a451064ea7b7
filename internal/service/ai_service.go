package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/questionbank"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/logger"
	"interview_assistant_backend/pkg/monitoring"
	"interview_assistant_backend/pkg/retry"
	"interview_assistant_backend/pkg/tracing"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type AIErrorClass string

const (
	AIErrTransient AIErrorClass = "transient"
	AIErrPermanent AIErrorClass = "permanent"
	AIErrMalformed AIErrorClass = "malformed"
)

// AIError 模型调用失败，Class 决定提示文案
type AIError struct {
	Op    string
	Class AIErrorClass
	Err   error
}

func (e *AIError) Error() string {
	return fmt.Sprintf("ai %s (%s): %v", e.Op, e.Class, e.Err)
}

func (e *AIError) Unwrap() error { return e.Err }

func classifyAIError(op string, err error) *AIError {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr
	}
	class := AIErrPermanent
	if retry.IsRetryable(err) {
		class = AIErrTransient
	}
	return &AIError{Op: op, Class: class, Err: err}
}

// userNotice 给前端展示的降级原因
func userNotice(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "503") || strings.Contains(msg, "overloaded"):
		return "The AI service is currently overloaded. Please try again in a few moments."
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return "Too many requests. Please wait a moment before trying again."
	case strings.Contains(msg, "api key"):
		return "Service configuration issue. Scored with the offline evaluator."
	case retry.IsRetryable(err):
		return "Network error. Scored with the offline evaluator."
	}
	var aiErr *AIError
	if errors.As(err, &aiErr) && aiErr.Class == AIErrMalformed {
		return "The AI response could not be read. Scored with the offline evaluator."
	}
	return "An unexpected error occurred. Scored with the offline evaluator."
}

// Generator 文本生成后端
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, cfg config.AIConfig, httpClient *http.Client) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, util.ErrAIUnconfigured
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: "v1beta",
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		return "", &AIError{Op: "generate", Class: AIErrMalformed, Err: errors.New("empty response")}
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

var (
	jsonArrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
	jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

type AIService struct {
	gen Generator

	mu      sync.RWMutex
	policy  retry.Policy
	timeout time.Duration
}

// NewAIService 未配置 API Key 时返回只走兜底逻辑的服务
func NewAIService(cfg config.AIConfig) *AIService {
	s := &AIService{}
	s.UpdateConfig(cfg)

	if cfg.APIKey == "" {
		logger.Log.Warn("GEMINI_API_KEY not set, interview questions and analysis use the offline fallback")
		return s
	}

	gen, err := NewGeminiGenerator(context.Background(), cfg, nil)
	if err != nil {
		logger.Log.Error("Failed to initialize Gemini client", zap.Error(err))
		return s
	}
	s.gen = gen
	return s
}

func NewAIServiceWithGenerator(gen Generator, cfg config.AIConfig) *AIService {
	s := &AIService{gen: gen}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 热更新重试参数
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	p := retry.DefaultPolicy()
	if cfg.MaxRetries >= 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.BaseDelayMS > 0 {
		p.BaseDelay = cfg.BaseDelay()
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second

	s.mu.Lock()
	s.policy = p
	s.timeout = timeout
	s.mu.Unlock()
}

func (s *AIService) Enabled() bool {
	return s.gen != nil
}

func (s *AIService) call(ctx context.Context, op, prompt string) (text string, err error) {
	if s.gen == nil {
		return "", util.ErrAIUnconfigured
	}

	ctx, span := tracing.StartSpan(ctx, "ai."+op, attribute.String("ai.operation", op))
	defer func() { tracing.End(span, err) }()

	s.mu.RLock()
	policy := s.policy
	timeout := s.timeout
	s.mu.RUnlock()

	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		monitoring.AIRetries.WithLabelValues(op).Inc()
		logger.Log.Warn("Retrying AI request",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	return retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return s.gen.Generate(ctx, prompt)
	})
}

type QuestionBatch struct {
	Questions []model.GeneratedQuestion `json:"questions"`
	Source    model.AnalysisSource      `json:"source"`
}

// GenerateQuestions 模型出题，任何失败都退回内置题库（仅 beginner，打乱）
func (s *AIService) GenerateQuestions(ctx context.Context, topic string, count int) QuestionBatch {
	questions, err := s.GenerateFromModel(ctx, topic, count)
	if err == nil {
		monitoring.AIRequests.WithLabelValues("generate_questions", "ok").Inc()
		return QuestionBatch{Questions: questions, Source: model.SourceAI}
	}

	monitoring.AIRequests.WithLabelValues("generate_questions", "fallback").Inc()
	if !errors.Is(err, util.ErrAIUnconfigured) {
		logger.Log.Warn("Using fallback questions",
			zap.String("topic", topic),
			zap.String("reason", userNotice(err)),
			zap.Error(err),
		)
	}

	return QuestionBatch{Questions: questionbank.Fallback(topic, count), Source: model.SourceFallback}
}

// GenerateFromModel 只调用模型，不做兜底
func (s *AIService) GenerateFromModel(ctx context.Context, topic string, count int) ([]model.GeneratedQuestion, error) {
	text, err := s.call(ctx, "generate_questions", questionPrompt(topic, count))
	if err != nil {
		return nil, classifyAIError("generate_questions", err)
	}
	return parseGeneratedQuestions(text, count)
}

func parseGeneratedQuestions(text string, count int) ([]model.GeneratedQuestion, error) {
	match := jsonArrayPattern.FindString(text)
	if match == "" {
		return nil, &AIError{Op: "generate_questions", Class: AIErrMalformed, Err: errors.New("no JSON array in response")}
	}

	var raw []struct {
		Text       string `json:"text"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, &AIError{Op: "generate_questions", Class: AIErrMalformed, Err: err}
	}

	questions := make([]model.GeneratedQuestion, 0, len(raw))
	for _, q := range raw {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		questions = append(questions, model.GeneratedQuestion{
			Text:       text,
			Difficulty: model.ParseDifficulty(q.Difficulty),
		})
	}
	if len(questions) == 0 {
		return nil, &AIError{Op: "generate_questions", Class: AIErrMalformed, Err: errors.New("no questions in response")}
	}
	if count > 0 && len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

// AnalyzeAnswer 模型评分后做加分调整；模型不可用或返回不可解析时按篇幅兜底
func (s *AIService) AnalyzeAnswer(ctx context.Context, question, answer string) *model.Analysis {
	text, err := s.call(ctx, "analyze_answer", analysisPrompt(question, answer))
	if err == nil {
		var analysis *model.Analysis
		analysis, err = parseAnalysis(text, answer)
		if err == nil {
			monitoring.AIRequests.WithLabelValues("analyze_answer", "ok").Inc()
			return analysis
		}
	}

	aiErr := classifyAIError("analyze_answer", err)
	monitoring.AIRequests.WithLabelValues("analyze_answer", "fallback").Inc()
	monitoring.AnalysisFallbacks.Inc()

	fallback := FallbackAnalysis(answer)
	if errors.Is(err, util.ErrAIUnconfigured) {
		return fallback
	}

	fallback.Notice = userNotice(aiErr)
	fields := []zap.Field{zap.String("class", string(aiErr.Class)), zap.Error(err)}
	if aiErr.Class == AIErrPermanent {
		logger.Log.Error("AI analysis failed, using fallback", fields...)
	} else {
		logger.Log.Warn("AI analysis failed, using fallback", fields...)
	}
	return fallback
}

func parseAnalysis(text, answer string) (*model.Analysis, error) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return nil, &AIError{Op: "analyze_answer", Class: AIErrMalformed, Err: errors.New("no JSON object in response")}
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, &AIError{Op: "analyze_answer", Class: AIErrMalformed, Err: err}
	}
	return normalizeAnalysis(raw, answer), nil
}

func questionPrompt(topic string, count int) string {
	return fmt.Sprintf(`Write %[1]d friendly, beginner-level technical interview questions about %[2]s.

Keep every question short and approachable, focused on the fundamentals a learner meets first.
Phrase them like a relaxed conversation rather than an exam.

Respond with a JSON array only, in this shape:
[
  {"text": "question text", "difficulty": "beginner"}
]

Topic: %[2]s
Count: %[1]d`, count, topic)
}

func analysisPrompt(question, answer string) string {
	return fmt.Sprintf(`You are a fair and encouraging technical interviewer. Evaluate the candidate's answer.

Question: %q

Answer: %q

Consider technical accuracy, effort, clarity, practical examples and room to grow.
Scoring guide: basic understanding 5-6, good effort with some accuracy 6-7, strong 7-8,
excellent 8-9. Reserve 1-3 for off-topic answers or no attempt.

Respond with a JSON object only:
{
  "score": <number 1-10>,
  "feedback": "<2-3 sentences>",
  "strengths": ["...", "...", "..."],
  "improvements": ["...", "...", "..."],
  "keyPoints": ["...", "...", "..."]
}`, question, answer)
}
