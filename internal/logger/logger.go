package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/divyanshu1906/CrowdFunding-Website/config"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	sugared *zap.SugaredLogger
)

func init() {
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	set(l)
}

func set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugared = l.Sugar()
}

// Init replaces the process logger according to cfg. Output "file" writes JSON lines to a
// rotating file; anything else writes to stdout.
func Init(cfg config.LogConfig) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var sink zapcore.WriteSyncer
	if cfg.Output == "file" && cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, ParseLevel(cfg.Level))
	set(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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

// L returns the underlying structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

func Debugf(format string, args ...interface{}) { s().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { s().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { s().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { s().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { s().Fatalf(format, args...) }

func Sync() {
	_ = L().Sync()
}
