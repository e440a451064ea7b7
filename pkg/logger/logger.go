package logger

import (
	"interview_assistant_backend/internal/config"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 在 InitLogger 之前为 Nop，测试和脚本可直接使用
var Log = zap.NewNop()

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// ParseLevel 显式配置优先，否则按运行模式决定
func ParseLevel(level, mode string) zapcore.Level {
	if level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(strings.ToLower(level))); err == nil {
			return l
		}
	}
	if mode == "debug" {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

// NewCore 文件输出 JSON，控制台输出可读格式；两者都关闭时返回 NopCore
func NewCore(cfg config.LogConfig, level zapcore.Level) zapcore.Core {
	var cores []zapcore.Core
	if cfg.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), fileWriter, level))
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), level))
	}
	if len(cores) == 0 {
		return zapcore.NewNopCore()
	}
	return zapcore.NewTee(cores...)
}

func InitLogger(cfg *config.Config) {
	level := ParseLevel(cfg.Log.Level, cfg.Server.Mode)
	Log = zap.New(NewCore(cfg.Log, level), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// Sync 退出前刷盘
func Sync() {
	_ = Log.Sync()
}
