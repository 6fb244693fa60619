package server

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions 日志输出位置与级别
type LogOptions struct {
	File   string // 滚动日志文件，空表示不写文件
	Level  string // debug/info/warn/error，非法值按 info 处理
	Stderr bool   // 同时输出到终端
}

// NewLogger 按配置组装 zap：文件（lumberjack 滚动）和/或终端
func NewLogger(opts LogOptions) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	})

	var cores []zapcore.Core
	if opts.File != "" {
		// 单文件 10MB，保留 3 个备份，最长 7 天
		rotate := &lumberjack.Logger{Filename: opts.File, MaxSize: 10, MaxBackups: 3, MaxAge: 7}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotate), level))
	}
	if opts.Stderr {
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.Lock(os.Stderr), level))
	}
	if len(cores) == 0 {
		return zap.NewNop().Sugar()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
}
