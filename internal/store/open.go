package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/lecture-board/internal/model"
)

// Open connects to the backend selected by cfg. apiKey is only used by the
// rest backend.
func Open(ctx context.Context, cfg model.StoreConfig, apiKey string) (Client, error) {
	switch cfg.Backend {
	case model.BackendSQLite, "":
		return NewSQLiteStore(ctx, cfg.SQLitePath, cfg.Migrate)
	case model.BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN, cfg.Migrate)
	case model.BackendREST:
		if apiKey == "" {
			return nil, fmt.Errorf("rest backend requires an API key")
		}
		timeout := time.Duration(cfg.TimeoutSec) * time.Second
		return NewRESTClient(cfg.RESTURL, apiKey, timeout), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
