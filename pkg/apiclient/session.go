package apiclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Session 客户端登录态，显式传递并持久化到文件
type Session struct {
	mu       sync.RWMutex
	path     string
	token    string
	username string
}

type sessionFile struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// LoadSession 文件不存在时返回空会话
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	s.token, s.username = f.Token, f.Username
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Set 更新登录态并写盘
func (s *Session) Set(token, username string) error {
	s.mu.Lock()
	s.token, s.username = token, username
	s.mu.Unlock()
	return s.Save()
}

func (s *Session) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	data, err := json.Marshal(sessionFile{Token: s.token, Username: s.username})
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear 退出登录并删除会话文件
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token, s.username = "", ""
	s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
