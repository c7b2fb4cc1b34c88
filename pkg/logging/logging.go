package logging

import (
	"go.uber.org/zap"
)

// New returns a zap logger configured for the application environment.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production", "staging":
		return zap.NewProduction()
	default:
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		return cfg.Build()
	}
}
