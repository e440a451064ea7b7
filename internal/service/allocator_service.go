package service

import (
	"context"
	"errors"
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/logger"
	"interview_assistant_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 50

	lockRetryInterval = 50 * time.Millisecond
)

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// AllocatorService 为用户分配未做过的题目，做完一轮后清空使用记录重新开始
type AllocatorService struct {
	DB    *gorm.DB
	Redis *redis.Client

	mu  sync.RWMutex
	cfg config.AllocatorConfig
}

func NewAllocatorService(db *gorm.DB, rdb *redis.Client, cfg config.AllocatorConfig) *AllocatorService {
	return &AllocatorService{DB: db, Redis: rdb, cfg: cfg}
}

func (s *AllocatorService) UpdateConfig(cfg config.AllocatorConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *AllocatorService) config() config.AllocatorConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// NormalizeCount count<=0 取默认值，超过上限截断
func (s *AllocatorService) NormalizeCount(count int) int {
	cfg := s.config()
	def, max := cfg.DefaultCount, cfg.MaxCount
	if def <= 0 {
		def = DefaultQuestionCount
	}
	if max <= 0 {
		max = MaxQuestionCount
	}
	if count <= 0 {
		count = def
	}
	if count > max {
		count = max
	}
	return count
}

// Allocate 返回至多 count 道该用户在该 topic 下未做过的题并记录使用；
// 已做题数达到题库总数时先清空该 topic 的使用记录
func (s *AllocatorService) Allocate(ctx context.Context, userID uint, topic string, count int) ([]model.Question, error) {
	topic = strings.TrimSpace(topic)
	count = s.NormalizeCount(count)

	cfg := s.config()
	if cfg.Serialize && s.Redis != nil {
		release, err := s.lock(ctx, userID, topic, time.Duration(cfg.LockTTLSec)*time.Second)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var served []model.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewQuestionRepository(tx)

		used, err := repo.CountUsed(userID, topic)
		if err != nil {
			return fmt.Errorf("count used questions: %w", err)
		}
		total, err := repo.CountByTopic(topic)
		if err != nil {
			return fmt.Errorf("count topic questions: %w", err)
		}
		if total == 0 {
			return nil
		}

		if used >= total {
			removed, err := repo.ResetUsage(userID, topic)
			if err != nil {
				return fmt.Errorf("reset usage: %w", err)
			}
			monitoring.PoolResets.WithLabelValues(topic).Inc()
			logger.Log.Info("Question pool exhausted, usage reset",
				zap.Uint("userID", userID),
				zap.String("topic", topic),
				zap.Int64("removed", removed),
			)
		}

		served, err = repo.SelectUnused(userID, topic, count)
		if err != nil {
			return fmt.Errorf("select questions: %w", err)
		}
		return repo.MarkUsed(userID, served)
	})
	if err != nil {
		return nil, err
	}

	if served == nil {
		served = []model.Question{}
	}
	monitoring.QuestionsServed.WithLabelValues(topic).Add(float64(len(served)))
	return served, nil
}

// lock 以 (user, topic) 为粒度的 redis 互斥锁
func (s *AllocatorService) lock(ctx context.Context, userID uint, topic string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	key := fmt.Sprintf("interview:alloc:%d:%s", userID, topic)
	token := uuid.NewString()
	deadline := time.Now().Add(ttl)

	for {
		ok, err := s.Redis.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire allocation lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, util.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		err := releaseLockScript.Run(context.Background(), s.Redis, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Failed to release allocation lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *AllocatorService) Topics() ([]string, error) {
	return repository.NewQuestionRepository(s.DB).Topics()
}
