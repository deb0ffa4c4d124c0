package app

import (
	"go-shortlink/internal/config"

	"go.uber.org/zap"
)

// NewLogger builds a production logger for prod and a development logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == config.EnvProd {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
