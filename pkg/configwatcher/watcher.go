package configwatcher

import (
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/pkg/logger"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = time.Second

type ConfigReloader func(cfg *config.Config)

// WatchConfig 监听配置文件写入，防抖后重新加载并回调；文件不存在时直接返回
func WatchConfig(configFile string, reloader ConfigReloader) {
	watch(configFile, reloader, nil)
}

// watch 监听建立后关闭 ready
func watch(configFile string, reloader ConfigReloader, ready chan<- struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.Error("Failed to create config watcher", zap.Error(err))
		return
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(configFile)
	if err != nil {
		logger.Log.Error("Failed to resolve config path", zap.Error(err))
		return
	}

	// 监听目录，编辑器常以 rename 方式保存文件
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		logger.Log.Warn("Config watcher disabled", zap.String("path", absPath), zap.Error(err))
		return
	}

	if ready != nil {
		close(ready)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", absPath))
			reloader(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
