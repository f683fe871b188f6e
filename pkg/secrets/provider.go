// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package secrets stores small sensitive values, such as the token cache,
// outside the plain data store.
package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks -source=provider.go Provider

// ErrNotFound indicates that the requested key was not found.
var ErrNotFound = errors.New("key not found")

// DefaultService is the keyring service name entries are stored under.
const DefaultService = "batchauth"

// Provider defines a secret storage backend.
type Provider interface {
	// Set stores value under service/key, replacing any previous value.
	Set(service, key, value string) error

	// Get retrieves a value, returning ErrNotFound when absent.
	Get(service, key string) (string, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(service, key string) error

	// IsAvailable tests whether the backend is functional on this host.
	IsAvailable() bool

	// Name returns a human-readable name for the backend.
	Name() string
}

// probeKey returns a unique key name used for availability checks so that
// concurrent probes do not collide.
func probeKey() string {
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		return fmt.Sprintf("batchauth-keyring-probe-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("batchauth-keyring-probe-%d-%x", time.Now().UnixNano(), random)
}
