package store

import (
	"context"
	"fmt"
)

// Backend kinds accepted by Open.
const (
	KindBolt     = "bolt"
	KindRedis    = "redis"
	KindPostgres = "postgres"
	KindMemory   = "memory"
)

// Options selects and configures a cache backend.
type Options struct {
	Kind string

	BoltPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string
}

// Open builds the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case KindBolt, "":
		return OpenBolt(opts.BoltPath)
	case KindRedis:
		return NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case KindPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Kind)
	}
}
