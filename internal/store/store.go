// Package store persists interview contexts between requests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
)

var ErrNotFound = errors.New("session not found")

// Store saves and loads assessment contexts. Save assigns an id when the
// context has none and returns the id it stored under.
type Store interface {
	Save(ctx context.Context, c assessment.Context) (string, error)
	Load(ctx context.Context, id string) (assessment.Context, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func ensureID(c assessment.Context) assessment.Context {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
	}
	return c
}

// Options selects and configures a Store implementation.
type Options struct {
	Driver        string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
}

// Open returns the Store named by opts.Driver ("sqlite" or "redis").
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return NewSQLiteStore(opts.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisTTL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func encode(c assessment.Context) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}
	return b, nil
}

func decode(b []byte) (assessment.Context, error) {
	var c assessment.Context
	if err := json.Unmarshal(b, &c); err != nil {
		return assessment.Context{}, fmt.Errorf("decode context: %w", err)
	}
	return c, nil
}
