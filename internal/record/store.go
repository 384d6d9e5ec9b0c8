package record

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
)

type Config struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// Open returns the store selected by cfg.Driver. CSV is the default.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverCSV:
		return NewCSVStore(cfg.Path, logger), nil
	case DriverSQLite, "sqlite3":
		return OpenSQLite(ctx, cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown record store driver %q", cfg.Driver)
	}
}
