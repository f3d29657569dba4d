package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/research"
	"github.com/dmsharma/researcher/internal/runs/inmemory"
	redisstore "github.com/dmsharma/researcher/internal/runs/redis"
)

// Store keeps run state for the duration of a UI session. Entries expire
// after the configured TTL; nothing outlives it.
type Store interface {
	Save(ctx context.Context, run research.Run) error
	Get(ctx context.Context, id string) (research.Run, bool, error)
}

var ErrUnsupportedStore = errors.New("unsupported run store")

// NewStore builds the configured run store backend. A redis backend is
// pinged here so a bad connection fails startup, not the first run.
func NewStore(ctx context.Context, cfg config.RunsConfig) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	switch cfg.Store {
	case "inmemory":
		return inmemory.NewStore(ttl), nil
	case "redis":
		addr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
		st := redisstore.NewStore(addr, cfg.Redis.Password, cfg.Redis.DB, ttl)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := st.Ping(pctx); err != nil {
			return nil, fmt.Errorf("redis connection failed (%s): %w", addr, err)
		}
		return st, nil
	default:
		return nil, ErrUnsupportedStore
	}
}
