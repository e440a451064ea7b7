package jobs

import (
	"context"
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/questionbank"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/pkg/logger"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const topUpTimeout = 5 * time.Minute

// QuestionTopUpJob 定期为题量不足的主题补充模型生成的题目
type QuestionTopUpJob struct {
	QuestionRepo *repository.QuestionRepository
	AI           *service.AIService
	Cfg          config.JobsConfig

	cron *cron.Cron
}

// TopUpReport 单次运行结果，主题 -> 新增题数
type TopUpReport struct {
	Added   map[string]int
	Skipped bool
}

func NewQuestionTopUpJob(repo *repository.QuestionRepository, ai *service.AIService, cfg config.JobsConfig) *QuestionTopUpJob {
	return &QuestionTopUpJob{
		QuestionRepo: repo,
		AI:           ai,
		Cfg:          cfg,
		cron:         cron.New(),
	}
}

func (j *QuestionTopUpJob) Start() error {
	if !j.Cfg.TopUpEnabled {
		logger.Log.Info("Question top-up job is disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.Cfg.TopUpSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), topUpTimeout)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			logger.Log.Error("Question top-up job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule question top-up job: %w", err)
	}

	j.cron.Start()
	logger.Log.Info("Question top-up job started", zap.String("schedule", j.Cfg.TopUpSchedule))
	return nil
}

func (j *QuestionTopUpJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		logger.Log.Info("Question top-up job stopped")
	}
}

// Run 执行一次补题，未配置模型时直接跳过
func (j *QuestionTopUpJob) Run(ctx context.Context) (*TopUpReport, error) {
	report := &TopUpReport{Added: map[string]int{}}
	if !j.AI.Enabled() {
		report.Skipped = true
		return report, nil
	}

	counts, err := j.poolSizes()
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(counts))
	for t := range counts {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		missing := j.Cfg.MinPoolSize - int(counts[topic])
		if missing <= 0 {
			continue
		}
		added, err := j.topUp(ctx, topic, missing)
		if err != nil {
			logger.Log.Warn("Failed to top up topic", zap.String("topic", topic), zap.Error(err))
			continue
		}
		if added > 0 {
			report.Added[topic] = added
			logger.Log.Info("Topped up question pool", zap.String("topic", topic), zap.Int("added", added))
		}
	}
	return report, nil
}

func (j *QuestionTopUpJob) poolSizes() (map[string]int64, error) {
	counts := map[string]int64{}
	for _, t := range questionbank.Topics() {
		counts[t] = 0
	}
	rows, err := j.QuestionRepo.CountPerTopic()
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.Topic] = r.Total
	}
	return counts, nil
}

func (j *QuestionTopUpJob) topUp(ctx context.Context, topic string, missing int) (int, error) {
	generated, err := j.AI.GenerateFromModel(ctx, topic, missing)
	if err != nil {
		return 0, err
	}

	var fresh []model.Question
	seen := map[string]bool{}
	for _, g := range generated {
		text := strings.TrimSpace(g.Text)
		if text == "" || seen[text] {
			continue
		}
		exists, err := j.QuestionRepo.ExistsText(topic, text)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		seen[text] = true
		fresh = append(fresh, model.Question{Topic: topic, Text: text, Difficulty: model.ParseDifficulty(string(g.Difficulty))})
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := j.QuestionRepo.CreateBatch(fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
