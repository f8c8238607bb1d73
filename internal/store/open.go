package store

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"disqusctl/pkg/disqus"
	"disqusctl/pkg/logging"
)

// Kind names a store implementation.
type Kind string

const (
	KindFile   Kind = "file"
	KindPebble Kind = "pebble"
	KindRedis  Kind = "redis"
	KindMemory Kind = "memory"
)

// ParseKind converts a kind name into a Kind. The empty string selects KindFile.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindFile, nil
	case KindFile, KindPebble, KindRedis, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown store kind %q (expected file, pebble, redis or memory)", s)
	}
}

// Config selects and configures a store.
type Config struct {
	Kind Kind

	// Path is the directory for file and pebble stores. Empty selects
	// DefaultDir (pebble uses DefaultDir/identity.db).
	Path string

	// RedisURL is required for redis stores.
	RedisURL string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open creates the store described by cfg. The returned Closer must be
// closed when the store is no longer used.
func Open(ctx context.Context, cfg Config) (disqus.Store, io.Closer, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = KindFile
	}

	logging.Debug(subsystem, "Opening %s store", kind)

	switch kind {
	case KindFile:
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil

	case KindPebble:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(DefaultDir(), "identity.db")
		}
		s, err := OpenPebble(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case KindRedis:
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("redis store requires a redis URL")
		}
		s, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case KindMemory:
		return disqus.NewMemoryStore(), nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
