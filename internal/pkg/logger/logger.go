package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOption 日志初始化参数，由 config.LogConfig 转换而来
type LogOption struct {
	Format   string // console / json
	LogDir   string // 为空时只输出到 stdout
	Level    string // debug / info / warn / error
	Compress bool   // 是否压缩轮转后的旧文件
}

const (
	defaultFileName   = "indexer.log"
	defaultMaxSizeMB  = 200
	defaultMaxBackups = 20
	defaultMaxAgeDays = 7
)

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	current.Store(newSugar(LogOption{Format: "console", Level: "info"}))
}

// Init 按配置替换全局 logger，可重复调用
func Init(opt LogOption) {
	old := current.Swap(newSugar(opt))
	if old != nil {
		_ = old.Sync()
	}
}

func newSugar(opt LogOption) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(opt.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	level := parseLevel(opt.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}

	if opt.LogDir != "" {
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(opt.LogDir, defaultFileName),
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   opt.Compress,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func Debugf(template string, args ...interface{}) {
	current.Load().Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	current.Load().Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	current.Load().Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	current.Load().Errorf(template, args...)
}

func Sync() {
	_ = current.Load().Sync()
}
