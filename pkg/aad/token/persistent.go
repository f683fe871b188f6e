// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/secrets"
)

// PersistedKey is the secret key the serialized cache is stored under.
const PersistedKey = "tokenCache"

// persistedEntry is the on-disk form of one cache entry.
type persistedEntry struct {
	Key
	Token AccessToken `json:"token"`
}

// PersistentCache is a MemoryCache mirrored into a secrets.Provider so that
// refresh tokens survive restarts. Persistence failures are logged and
// never fail the in-memory operation.
type PersistentCache struct {
	memory   *MemoryCache
	provider secrets.Provider
	service  string
	now      func() time.Time

	// writeMu orders snapshot+write pairs so an older snapshot never
	// overwrites a newer one.
	writeMu sync.Mutex
}

var _ Cache = (*PersistentCache)(nil)

// NewPersistentCache returns a cache backed by provider under service.
// An empty service uses secrets.DefaultService.
func NewPersistentCache(provider secrets.Provider, service string) *PersistentCache {
	if service == "" {
		service = secrets.DefaultService
	}
	return &PersistentCache{
		memory:   NewMemoryCache(),
		provider: provider,
		service:  service,
		now:      time.Now,
	}
}

// Init loads previously persisted entries. Missing data is not an error;
// corrupt data is discarded. Entries that are expired and cannot be
// refreshed are dropped.
func (c *PersistentCache) Init(_ context.Context) error {
	raw, err := c.provider.Get(c.service, PersistedKey)
	if errors.Is(err, secrets.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read persisted token cache: %w", err)
	}

	var entries []persistedEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warnf("Discarding unreadable token cache from %s: %v", c.provider.Name(), err)
		if delErr := c.provider.Delete(c.service, PersistedKey); delErr != nil {
			logger.Debugf("Failed to delete unreadable token cache: %v", delErr)
		}
		return nil
	}

	now := c.now()
	tokens := make(map[Key]AccessToken, len(entries))
	for _, e := range entries {
		if e.Token.Expired(now, 0) && !e.Token.HasRefreshToken() {
			continue
		}
		tokens[e.Key] = e.Token
	}
	c.memory.replace(tokens)
	logger.Debugw("Loaded token cache", "entries", len(tokens), "backend", c.provider.Name())
	return nil
}

// StoreToken implements Cache.
func (c *PersistentCache) StoreToken(tenant, resource string, token AccessToken) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.memory.StoreToken(tenant, resource, token)
	c.persist()
}

// GetToken implements Cache.
func (c *PersistentCache) GetToken(tenant, resource string) (AccessToken, bool) {
	return c.memory.GetToken(tenant, resource)
}

// Clear implements Cache and removes the persisted copy.
func (c *PersistentCache) Clear() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.memory.Clear()
	if err := c.provider.Delete(c.service, PersistedKey); err != nil {
		logger.Warnf("Failed to remove persisted token cache: %v", err)
	}
}

func (c *PersistentCache) persist() {
	snapshot := c.memory.snapshot()
	entries := make([]persistedEntry, 0, len(snapshot))
	for k, t := range snapshot {
		entries = append(entries, persistedEntry{Key: k, Token: t})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		logger.Warnf("Failed to serialize token cache: %v", err)
		return
	}
	if err := c.provider.Set(c.service, PersistedKey, string(data)); err != nil {
		logger.Warnf("Failed to persist token cache: %v", err)
	}
}
