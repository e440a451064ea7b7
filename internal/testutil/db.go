// Package testutil 测试共用的数据库与 redis 夹具
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// NewDB 每个测试一个独立的内存库，已迁移并写入内置题库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("%s-%d", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := database.OpenMemory(name)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewEmptyDB 与 NewDB 相同，但清空内置题库
func NewEmptyDB(t testing.TB) *gorm.DB {
	t.Helper()
	db := NewDB(t)
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Question{}).Error; err != nil {
		t.Fatalf("failed to clear questions: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "x"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func CreateQuestions(t testing.TB, db *gorm.DB, topic string, n int) []model.Question {
	t.Helper()
	qs := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, model.Question{
			Topic:      topic,
			Text:       fmt.Sprintf("%s question %d", topic, i+1),
			Difficulty: model.Beginner,
		})
	}
	if err := db.Create(&qs).Error; err != nil {
		t.Fatalf("failed to create questions: %v", err)
	}
	return qs
}

func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}
