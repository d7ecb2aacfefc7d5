// Package logging builds the application logger: an ectologger facade whose
// sink writes structured records through zap.
package logging

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Level  string
	Pretty bool
}

// New returns the application logger and the underlying zap logger. Call
// Sync on the zap logger before exit.
func New(opts Options) (ectologger.Logger, *zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if opts.Pretty {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level, err := zapcore.ParseLevel(opts.Level); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}

	logger := ectologger.NewEctoLogger(sink(zapLogger))
	return logger, zapLogger, nil
}

func sink(zapLogger *zap.Logger) func(ectologger.EctoLogMessage) {
	return func(msg ectologger.EctoLogMessage) {
		fields := make([]zap.Field, 0, len(msg.Fields)+1)
		for key, value := range msg.Fields {
			fields = append(fields, zap.Any(key, value))
		}
		if msg.Err != nil {
			fields = append(fields, zap.Error(msg.Err))
		}

		switch strings.ToLower(fmt.Sprint(msg.Level)) {
		case "debug":
			zapLogger.Debug(msg.Message, fields...)
		case "warn", "warning":
			zapLogger.Warn(msg.Message, fields...)
		case "error":
			zapLogger.Error(msg.Message, fields...)
		case "fatal":
			zapLogger.Fatal(msg.Message, fields...)
		default:
			zapLogger.Info(msg.Message, fields...)
		}
	}
}
