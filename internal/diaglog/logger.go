package diaglog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger whose info-level output goes to the
// diagnostic log. With verbose set, debug-level output is also written to
// stderr in development format.
func NewLogger(l *Log, verbose bool, stderr io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = zapcore.OmitKey

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), l, zapcore.InfoLevel),
	}
	if verbose && stderr != nil {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(devCfg),
			zapcore.Lock(zapcore.AddSync(stderr)),
			zapcore.DebugLevel,
		))
	}

	// Failures to write the diagnostic log never surface to the user.
	return zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(zapcore.AddSync(io.Discard)))
}
