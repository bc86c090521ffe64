package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

// Store persists interview session snapshots keyed by session id.
//
// Implementations must be safe for concurrent use. They do not serialize
// read-modify-write cycles of a single session; callers hold a per-session
// lock for that.
type Store interface {
	// Create inserts a new session. It fails with model.ErrSessionExists if
	// the id is taken.
	Create(ctx context.Context, s model.Session) error
	// Get returns the session or model.ErrSessionNotFound.
	Get(ctx context.Context, id string) (model.Session, error)
	// Update replaces an existing session or fails with model.ErrSessionNotFound.
	Update(ctx context.Context, s model.Session) error
	// List returns every live session ordered by creation time.
	List(ctx context.Context) ([]model.Session, error)
	Close() error
}

// Sweeper is implemented by stores that need expired sessions removed
// explicitly.
type Sweeper interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// Kind names a store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// Options configures Open.
type Options struct {
	Kind          Kind
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Open creates the backend selected by opts.Kind.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch Kind(strings.ToLower(string(opts.Kind))) {
	case KindMemory, "":
		return NewMemory(), nil
	case KindSQLite:
		return NewSQLite(opts.SQLitePath)
	case KindRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			TTL:      opts.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown store %q (want memory, sqlite or redis)", opts.Kind)
	}
}

// RunSweeper calls CleanupExpired every interval until ctx is done. A
// non-positive interval disables sweeping and returns immediately.
func RunSweeper(ctx context.Context, sw Sweeper, interval time.Duration, logf func(removed int, err error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sw.CleanupExpired(ctx)
			if logf != nil {
				logf(n, err)
			}
		}
	}
}
