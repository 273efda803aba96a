// Package logsvc provides the application loggers.
package logsvc

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ocwc/oeweek2022/core"
)

// NewZapLogger logs to stderr, and also to a rotated JSON file when conf.LogFile is set.
func NewZapLogger(conf *core.Config) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if conf.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	encConf := zap.NewProductionEncoderConfig()
	encConf.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEnc zapcore.Encoder
	if conf.Debug {
		devConf := zap.NewDevelopmentEncoderConfig()
		devConf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(devConf)
	} else {
		consoleEnc = zapcore.NewJSONEncoder(encConf)
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level)}

	if conf.LogFile != "" {
		writer := &lumberjack.Logger{
			Filename:   conf.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encConf), zapcore.AddSync(writer), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("env", conf.Env), zap.String("build", conf.Build))
}

// ZapLogger is a core.Logger without remote reporting.
type ZapLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewLogger(zl *zap.Logger) *ZapLogger { return &ZapLogger{zl: zl} }

// NewNopLogger discards everything. Used in tests.
func NewNopLogger() *ZapLogger { return &ZapLogger{zl: zap.NewNop()} }

func (l ZapLogger) Debug(msg string, args ...interface{}) { l.zl.Debug(msg, zapFields(args)...) }
func (l ZapLogger) Info(msg string, args ...interface{})  { l.zl.Info(msg, zapFields(args)...) }
func (l ZapLogger) Warn(msg string, args ...interface{})  { l.zl.Warn(msg, zapFields(args)...) }
func (l ZapLogger) Error(msg string, args ...interface{}) { l.zl.Error(msg, zapFields(args)...) }
func (l ZapLogger) Fatal(msg string, args ...interface{}) { l.zl.Fatal(msg, zapFields(args)...) }
