package model

type AnalysisSource string

const (
	SourceAI       AnalysisSource = "ai"
	SourceFallback AnalysisSource = "fallback"
)

// Analysis 单题评分结果，只在一次面试过程中存在
type Analysis struct {
	Score        float64        `json:"score"`
	Feedback     string         `json:"feedback"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
	KeyPoints    []string       `json:"keyPoints"`
	Source       AnalysisSource `json:"source"`
	Notice       string         `json:"notice,omitempty"`
}

// AnswerEntry 一道题的作答，Timestamp 为毫秒时间戳，Confidence/FacialExpression 为 nil 表示缺失
type AnswerEntry struct {
	QuestionID       string    `json:"questionId"`
	Question         string    `json:"question,omitempty"`
	Text             string    `json:"answer"`
	Timestamp        int64     `json:"timestamp"`
	Analysis         *Analysis `json:"analysis,omitempty"`
	Confidence       *float64  `json:"confidence,omitempty"`
	FacialExpression *float64  `json:"facialExpression,omitempty"`
}

type GeneratedQuestion struct {
	Text       string     `json:"text" yaml:"text"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
}
