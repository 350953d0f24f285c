package logger

import (
	"coursehub_backend/internal/config"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 在 InitLogger 之前为空实现，便于测试直接调用服务
var Log = zap.NewNop()

func InitLogger(cfg *config.Config) {
	Log = New(cfg.Log, cfg.Server.Mode)
}

// New 文件输出 JSON 并按大小滚动；控制台输出可关闭，但两者至少保留一个
func New(cfg config.LogConfig, mode string) *zap.Logger {
	level := parseLevel(cfg.Level, mode)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.SecondsDurationEncoder

	var cores []zapcore.Core
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}
	if cfg.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)).
		With(zap.String("service", "coursehub"))
}

// parseLevel 显式配置优先，否则 debug 模式输出 debug 日志
func parseLevel(name, mode string) zapcore.Level {
	if name != "" {
		if level, err := zapcore.ParseLevel(name); err == nil {
			return level
		}
	}
	if mode == "debug" {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}
