// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the durable key-value store batchauth keeps its
// signed-in user in.
package storage

import "context"

//go:generate mockgen -destination=mocks/mock_data_store.go -package=mocks -source=interfaces.go DataStore

// KeyCurrentUser holds the JSON encoded signed-in user.
const KeyCurrentUser = "currentUser"

// DataStore is a string key-value store.
type DataStore interface {
	// GetItem returns the value for key, or ErrNotFound.
	GetItem(ctx context.Context, key string) (string, error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	// Close releases any resources held by the store.
	Close() error
}
