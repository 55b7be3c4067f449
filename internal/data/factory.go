package data

import (
	"fmt"

	"go.uber.org/zap"

	"equity-backtest/internal/config"
)

// Source is a provider that also knows the trading calendar. Both
// concrete sources satisfy it.
type Source interface {
	Provider
	Calendar
}

// NewSource builds the configured data source.
func NewSource(cfg config.SourceConfig, log *zap.SugaredLogger) (Source, error) {
	switch cfg.Type {
	case "http":
		return NewClient(cfg.APIKey, cfg.BaseURL, log), nil
	case "file":
		return LoadFileSource(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown data source type %q", cfg.Type)
	}
}
