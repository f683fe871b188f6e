// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"slices"

	"github.com/stacklok/batchauth/pkg/logger"
)

// Backend types accepted by New.
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// Types lists the accepted backend types.
var Types = []string{TypeNone, TypeMemory, TypeFile, TypeSQLite, TypeRedis}

// Config selects and configures a backend.
type Config struct {
	// Type is one of Types. Empty selects TypeFile.
	Type string
	// Path is the file or database path for file and sqlite backends.
	Path string
	// Redis configures the redis backend.
	Redis RedisConfig
}

// ValidateType reports whether t names a backend.
func ValidateType(t string) error {
	if t == "" || slices.Contains(Types, t) {
		return nil
	}
	return fmt.Errorf("unknown storage type %q, expected one of %v", t, Types)
}

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg Config) (DataStore, error) {
	if err := ValidateType(cfg.Type); err != nil {
		return nil, err
	}
	logger.Debugw("Opening data store", "type", cfg.Type, "path", cfg.Path)

	switch cfg.Type {
	case TypeNone:
		return &NoopStore{}, nil
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeSQLite:
		return NewSQLiteStore(ctx, cfg.Path)
	case TypeRedis:
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return NewFileStore(cfg.Path)
	}
}
