// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"maps"
	"sync"
)

// Cache stores the latest token per (tenant, resource). Lookups are exact
// match on both parts and perform no expiry check.
type Cache interface {
	StoreToken(tenant, resource string, accessToken AccessToken)
	GetToken(tenant, resource string) (AccessToken, bool)
	Clear()
}

// Key identifies a cache entry.
type Key struct {
	Tenant   string `json:"tenant"`
	Resource string `json:"resource"`
}

// MemoryCache is a Cache held in process memory.
type MemoryCache struct {
	mu     sync.RWMutex
	tokens map[Key]AccessToken
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tokens: make(map[Key]AccessToken)}
}

// StoreToken replaces the entry for (tenant, resource).
func (c *MemoryCache) StoreToken(tenant, resource string, token AccessToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[Key{Tenant: tenant, Resource: resource}] = token
}

// GetToken returns the entry for (tenant, resource), expired or not.
func (c *MemoryCache) GetToken(tenant, resource string) (AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.tokens[Key{Tenant: tenant, Resource: resource}]
	return token, ok
}

// Clear removes every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.tokens)
}

// Len returns the number of entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

func (c *MemoryCache) snapshot() map[Key]AccessToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.tokens)
}

func (c *MemoryCache) replace(tokens map[Key]AccessToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
}
