package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"join/internal/config"
)

// Open builds the backend named by cfg.Driver.
func Open(cfg config.StoreConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "http", "firebase":
		b, err := NewHTTPBackend(HTTPOptions{
			BaseURL:    cfg.BaseURL,
			Root:       cfg.Root,
			AuthToken:  cfg.AuthToken,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.MaxCASRetries,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory":
		return NewMemoryBackend(), nil
	case "file", "":
		return NewFileBackend(cfg.DataDir)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisBackend(client, cfg.Redis.Prefix, cfg.MaxCASRetries), nil
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
