// Package logging builds the zap.Logger used throughout the bridge from
// configuration, following the teacher library's pervasive zap.Logger use
// (see examples/service/main.go's zap.NewDevelopment() bootstrap) with the
// level/format/output configurability shape of
// nerrad567/internal/infrastructure/logging.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/faltung/homed-google-bridge/internal/config"
)

// New builds a *zap.Logger from cfg: JSON or console encoding, level
// filtered, writing to stdout or stderr, with a fixed "service" field.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "console":
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "ts"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink, err := parseOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, level)
	logger := zap.New(core).With(zap.String("service", "homed-google-bridge"))
	return logger, nil
}

// Default returns a development logger for use before config is loaded
// (flag parsing failures, config file errors), matching the teacher's
// zap.NewDevelopment() bootstrap call.
func Default() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("logging: unrecognized level %q", level)
	}
}

func parseOutput(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(zapcore.AddSync(os.Stdout)), nil
	case "stderr":
		return zapcore.Lock(zapcore.AddSync(os.Stderr)), nil
	default:
		return nil, fmt.Errorf("logging: unrecognized output %q", output)
	}
}
