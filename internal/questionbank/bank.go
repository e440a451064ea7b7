// Package questionbank 内置参考题库（embed 的 YAML），用于数据库初始化和 AI 出题兜底
package questionbank

import (
	_ "embed"
	"fmt"
	"interview_assistant_backend/internal/model"
	"math/rand"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultTopic 未知主题兜底使用的题目分组
const DefaultTopic = "JavaScript"

//go:embed bank.yaml
var rawBank []byte

var (
	once    sync.Once
	bank    map[string][]model.GeneratedQuestion
	bankErr error
)

// Parse 解析 YAML 题库，key 为主题
func Parse(data []byte) (map[string][]model.GeneratedQuestion, error) {
	out := make(map[string][]model.GeneratedQuestion)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	for topic, qs := range out {
		for i := range qs {
			qs[i].Difficulty = model.ParseDifficulty(string(qs[i].Difficulty))
		}
		out[topic] = qs
	}
	return out, nil
}

// Load 返回内置题库，只解析一次
func Load() (map[string][]model.GeneratedQuestion, error) {
	once.Do(func() {
		bank, bankErr = Parse(rawBank)
	})
	return bank, bankErr
}

func Topics() []string {
	b, err := Load()
	if err != nil {
		return nil
	}
	topics := make([]string, 0, len(b))
	for t := range b {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// SeedQuestions 将题库展开成可直接入库的 Question 列表
func SeedQuestions() ([]model.Question, error) {
	b, err := Load()
	if err != nil {
		return nil, err
	}
	var out []model.Question
	for _, topic := range Topics() {
		for _, q := range b[topic] {
			out = append(out, model.Question{Topic: topic, Text: q.Text, Difficulty: q.Difficulty})
		}
	}
	return out, nil
}

// Fallback AI 出题失败时使用：只取 beginner 难度并打乱，未知主题回落到 JavaScript
func Fallback(topic string, count int) []model.GeneratedQuestion {
	b, err := Load()
	if err != nil {
		return nil
	}
	qs, ok := b[topic]
	if !ok {
		qs = b[DefaultTopic]
	}

	var beginner []model.GeneratedQuestion
	for _, q := range qs {
		if q.Difficulty == model.Beginner {
			beginner = append(beginner, q)
		}
	}
	rand.Shuffle(len(beginner), func(i, j int) {
		beginner[i], beginner[j] = beginner[j], beginner[i]
	})
	if count >= 0 && count < len(beginner) {
		beginner = beginner[:count]
	}
	return beginner
}
