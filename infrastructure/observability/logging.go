// Package observability wires the suite's logging, metrics and tracing.
package observability

import (
	"go.uber.org/zap"
)

// NewLogger builds the application logger. Development gets the
// human-readable config, everything else the production one; level and
// encoding come from configuration on top of that.
func NewLogger(level, format string, development bool) (*zap.Logger, error) {
	var zapConfig zap.Config
	if development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	switch format {
	case "console":
		zapConfig.Encoding = "console"
	case "json":
		zapConfig.Encoding = "json"
	}

	return zapConfig.Build()
}
