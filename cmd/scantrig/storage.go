package main

import (
	"fmt"

	"github.com/mrilab/scantrig/internal/config"
	"github.com/mrilab/scantrig/internal/storage"
	"github.com/mrilab/scantrig/internal/storage/bolt"
	"github.com/mrilab/scantrig/internal/storage/redis"
)

// openStore opens the configured session store backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "bolt":
		return bolt.Open(cfg.Storage.Path)
	case "redis":
		return redis.Open(cfg.Storage.Redis)
	default:
		return nil, fmt.Errorf("no session store configured (storage.type=%s)", cfg.Storage.Type)
	}
}
