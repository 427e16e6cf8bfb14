// Package storage persists session records between runs.
package storage

import (
	"context"
	"fmt"

	"aura/internal/config"
	"aura/internal/meeting"
)

// Backend loads and saves the full set of session records. Save replaces
// whatever was stored before.
type Backend interface {
	Load(ctx context.Context) ([]meeting.Record, error)
	Save(ctx context.Context, records []meeting.Record) error
	Close() error
}

// Open returns the backend named in cfg.
func Open(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "", config.StorageJSON:
		return NewJSONFile(cfg.SessionsFile), nil
	case config.StorageSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
