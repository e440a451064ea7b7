package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/testutil"
	"interview_assistant_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(qs []model.Question) map[uint]bool {
	out := make(map[uint]bool, len(qs))
	for _, q := range qs {
		out[q.ID] = true
	}
	return out
}

func TestAllocateWithoutRepeatsUntilExhausted(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	testutil.CreateQuestions(t, db, "JavaScript", 5)
	s := NewAllocatorService(db, nil, config.AllocatorConfig{})
	ctx := context.Background()

	first, err := s.Allocate(ctx, user.ID, "JavaScript", 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := s.Allocate(ctx, user.ID, "JavaScript", 3)
	require.NoError(t, err)
	require.Len(t, second, 2)

	seen := ids(first)
	for id := range ids(second) {
		assert.False(t, seen[id], "question %d served twice before reset", id)
	}

	// 五道题全部用完，第三次分配先重置
	third, err := s.Allocate(ctx, user.ID, "JavaScript", 3)
	require.NoError(t, err)
	assert.Len(t, third, 3)

	var usages int64
	require.NoError(t, db.Model(&model.QuestionUsage{}).Where("user_id = ?", user.ID).Count(&usages).Error)
	assert.EqualValues(t, 3, usages)
}

func TestAllocateEmptyTopic(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	s := NewAllocatorService(db, nil, config.AllocatorConfig{})

	qs, err := s.Allocate(context.Background(), user.ID, "Nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, qs)

	var usages int64
	require.NoError(t, db.Model(&model.QuestionUsage{}).Count(&usages).Error)
	assert.Zero(t, usages)
}

func TestAllocateIsPerUser(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	testutil.CreateQuestions(t, db, "Go", 3)
	s := NewAllocatorService(db, nil, config.AllocatorConfig{})
	ctx := context.Background()

	a, err := s.Allocate(ctx, alice.ID, "Go", 3)
	require.NoError(t, err)
	assert.Len(t, a, 3)

	b, err := s.Allocate(ctx, bob.ID, "Go", 3)
	require.NoError(t, err)
	assert.Len(t, b, 3)
}

func TestNormalizeCount(t *testing.T) {
	s := NewAllocatorService(nil, nil, config.AllocatorConfig{})
	assert.Equal(t, 5, s.NormalizeCount(0))
	assert.Equal(t, 5, s.NormalizeCount(-3))
	assert.Equal(t, 7, s.NormalizeCount(7))
	assert.Equal(t, 50, s.NormalizeCount(500))

	s.UpdateConfig(config.AllocatorConfig{DefaultCount: 3, MaxCount: 10})
	assert.Equal(t, 3, s.NormalizeCount(0))
	assert.Equal(t, 10, s.NormalizeCount(11))
}

func TestAllocateSeededBankCycles(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice")
	s := NewAllocatorService(db, nil, config.AllocatorConfig{})
	ctx := context.Background()

	seen := map[uint]bool{}
	for i := 0; i < 7; i++ {
		qs, err := s.Allocate(ctx, user.ID, "JavaScript", 1)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.False(t, seen[qs[0].ID])
		seen[qs[0].ID] = true
	}
	assert.Len(t, seen, 7)
}

func TestAllocateSerializedWithRedisLock(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	testutil.CreateQuestions(t, db, "Go", 6)
	_, rdb := testutil.NewRedis(t)
	s := NewAllocatorService(db, rdb, config.AllocatorConfig{Serialize: true, LockTTLSec: 5})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]model.Question, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Allocate(ctx, user.ID, "Go", 3)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	first, second := ids(results[0]), ids(results[1])
	for id := range first {
		assert.False(t, second[id], "question %d served to both concurrent requests", id)
	}

	keys, err := rdb.Keys(ctx, "interview:alloc:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAllocateLockTimeout(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	user := testutil.CreateUser(t, db, "alice")
	testutil.CreateQuestions(t, db, "Go", 2)
	mr, rdb := testutil.NewRedis(t)
	s := NewAllocatorService(db, rdb, config.AllocatorConfig{Serialize: true, LockTTLSec: 1})

	require.NoError(t, mr.Set("interview:alloc:1:Go", "someone-else"))
	require.Equal(t, uint(1), user.ID)

	start := time.Now()
	_, err := s.Allocate(context.Background(), user.ID, "Go", 1)
	assert.ErrorIs(t, err, util.ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}
