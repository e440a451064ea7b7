package service

import (
	"interview_assistant_backend/internal/model"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// CorrectAnswerThreshold 单题得分不低于该值计为答对
	CorrectAnswerThreshold = 7.0
	ExcellentThreshold     = 8.0
	GoodThreshold          = 6.0

	MinScore = 1.0
	MaxScore = 10.0

	// 模型没有给出可用分数时的默认原始分
	DefaultRawScore = 5.0

	maxStrengths    = 4
	maxImprovements = 4
	maxKeyPoints    = 3
)

var (
	technicalTermsPattern = regexp.MustCompile(`(?i)function|variable|array|object|class|method|api|database|server|client`)
	examplePattern        = regexp.MustCompile(`(?i)example|instance|case|scenario|like|such as`)
)

var (
	defaultFeedback     = "Good effort! Your answer shows understanding. Consider adding structure, examples, and trade-offs."
	defaultStrengths    = []string{"Clear phrasing", "Relevant terminology", "Logical flow", "Shows understanding of core concepts"}
	defaultImprovements = []string{"Add concrete examples or metrics", "Explain trade-offs and alternatives", "Improve structure (intro/body/conclusion)", "Be concise with key points first"}
	defaultKeyPoints    = []string{"Technical knowledge", "Problem-solving approach", "Communication skills"}

	fallbackFeedback     = "Good effort! Your answer shows understanding. Continue practicing to improve further."
	fallbackStrengths    = []string{"Good attempt", "Shows understanding", "Clear communication"}
	fallbackImprovements = []string{"Continue practicing", "Build on your foundation", "Keep learning"}
)

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// AdjustScore 在模型原始分上做有界加分：基础 +1，篇幅、术语、举例各 +0.3，结果限制在 [1,10]
func AdjustScore(raw float64, answer string) float64 {
	score := raw + 1

	length := utf8.RuneCountInString(answer)
	if length > 150 {
		score += 0.3
	}
	if length > 300 {
		score += 0.3
	}
	if technicalTermsPattern.MatchString(answer) {
		score += 0.3
	}
	if examplePattern.MatchString(answer) {
		score += 0.3
	}

	return clamp(score, MinScore, MaxScore)
}

// FallbackScore 模型不可用时仅按篇幅打分，结果限制在 [5,10]
func FallbackScore(answer string) float64 {
	length := utf8.RuneCountInString(answer)
	score := 6.0

	for _, limit := range []int{50, 100, 200, 500} {
		if length > limit {
			score += 0.5
		}
	}
	if length < 30 {
		score--
	}
	if length < 20 {
		score--
	}

	return clamp(score, 5, MaxScore)
}

func FallbackAnalysis(answer string) *model.Analysis {
	return &model.Analysis{
		Score:        FallbackScore(answer),
		Feedback:     fallbackFeedback,
		Strengths:    append([]string(nil), fallbackStrengths...),
		Improvements: append([]string(nil), fallbackImprovements...),
		KeyPoints:    append([]string(nil), defaultKeyPoints...),
		Source:       model.SourceFallback,
	}
}

// rawAnalysis 模型返回的 JSON，score 可能是数字、字符串或缺失
type rawAnalysis struct {
	Score        interface{} `json:"score"`
	Feedback     string      `json:"feedback"`
	Strengths    []string    `json:"strengths"`
	Improvements []string    `json:"improvements"`
	KeyPoints    []string    `json:"keyPoints"`
}

func parseRawScore(v interface{}) float64 {
	var f float64
	switch s := v.(type) {
	case float64:
		f = s
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return DefaultRawScore
		}
		f = parsed
	default:
		return DefaultRawScore
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultRawScore
	}
	return f
}

func firstN(list []string, n int, defaults []string) []string {
	if len(list) == 0 {
		if defaults == nil {
			return []string{}
		}
		return append([]string(nil), defaults...)
	}
	if len(list) > n {
		list = list[:n]
	}
	return append([]string(nil), list...)
}

// normalizeAnalysis 调整分数并补齐、截断列表
func normalizeAnalysis(raw rawAnalysis, answer string) *model.Analysis {
	feedback := raw.Feedback
	if feedback == "" {
		feedback = defaultFeedback
	}

	keyPoints := defaultKeyPoints
	if raw.KeyPoints != nil {
		keyPoints = raw.KeyPoints
	}

	return &model.Analysis{
		Score:        AdjustScore(parseRawScore(raw.Score), answer),
		Feedback:     feedback,
		Strengths:    firstN(raw.Strengths, maxStrengths, defaultStrengths),
		Improvements: firstN(raw.Improvements, maxImprovements, defaultImprovements),
		KeyPoints:    firstN(keyPoints, maxKeyPoints, nil),
		Source:       model.SourceAI,
	}
}

// PerformanceLevel 按平均分给出等级
func PerformanceLevel(avg float64) string {
	switch {
	case avg >= ExcellentThreshold:
		return "Excellent"
	case avg >= GoodThreshold:
		return "Good"
	default:
		return "Needs Improvement"
	}
}
