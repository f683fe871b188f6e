// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import "context"

// NoopStore keeps nothing. GetItem always returns ErrNotFound and writes
// succeed silently. Used when persistence is disabled.
type NoopStore struct{}

var _ DataStore = (*NoopStore)(nil)

// GetItem always returns ErrNotFound.
func (*NoopStore) GetItem(_ context.Context, _ string) (string, error) {
	return "", ErrNotFound
}

// SetItem is a no-op that always succeeds.
func (*NoopStore) SetItem(_ context.Context, _, _ string) error {
	return nil
}

// RemoveItem is a no-op that always succeeds.
func (*NoopStore) RemoveItem(_ context.Context, _ string) error {
	return nil
}

// Close is a no-op.
func (*NoopStore) Close() error {
	return nil
}
