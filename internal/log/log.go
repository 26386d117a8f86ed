// Package log builds the zap loggers used by the command line tools.
package log

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level. Names are the ones zap
// accepts, case-insensitive, plus "warning" for warn; empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zap.InfoLevel, eris.Wrapf(err, "parse log level %q", name)
	}
	return level, nil
}

// New returns a JSON logger writing to stderr. Repeated messages are sampled
// so a hot loop cannot flood the output.
func New(level zapcore.Level) (*zap.Logger, error) {
	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, eris.Wrap(err, "build logger")
	}
	return logger, nil
}
