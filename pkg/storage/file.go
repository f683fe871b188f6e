// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"

	"github.com/stacklok/batchauth/pkg/fileutils"
	"github.com/stacklok/batchauth/pkg/logger"
)

// lockTimeout is the maximum time to wait for a file lock
const lockTimeout = 1 * time.Second

// DefaultDataFile is the data file path relative to the XDG data home.
const DefaultDataFile = "batchauth/data.json"

// CorruptSuffix is appended to an unreadable data file when it is replaced.
const CorruptSuffix = ".corrupt"

var errCorrupt = errors.New("failed to parse data file")

// FileStore keeps all items in one JSON document. Every operation takes a
// file lock so several bauth processes can share the file.
type FileStore struct {
	path string
}

var _ DataStore = (*FileStore)(nil)

// NewFileStore returns a store at path, or at the XDG data file when path is
// empty. The directory is created if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		path, err = xdg.DataFile(DefaultDataFile)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve data file path: %w", err)
		}
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the data file path.
func (s *FileStore) Path() string {
	return s.path
}

// GetItem implements DataStore.
func (s *FileStore) GetItem(ctx context.Context, key string) (string, error) {
	var value string
	var found bool
	err := s.withLock(ctx, func() error {
		items, err := s.read()
		if err != nil {
			return err
		}
		value, found = items[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return value, nil
}

// SetItem implements DataStore.
func (s *FileStore) SetItem(ctx context.Context, key, value string) error {
	return s.withLock(ctx, func() error {
		items, err := s.readForUpdate()
		if err != nil {
			return err
		}
		items[key] = value
		return s.write(items)
	})
}

// RemoveItem implements DataStore.
func (s *FileStore) RemoveItem(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		items, err := s.readForUpdate()
		if err != nil {
			return err
		}
		if _, ok := items[key]; !ok {
			return nil
		}
		delete(items, key)
		return s.write(items)
	})
}

// Close implements DataStore.
func (*FileStore) Close() error {
	return nil
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	// Use a separate lock file for cross-platform compatibility
	fileLock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout after %v", lockTimeout)
	}
	defer func() { _ = fileLock.Unlock() }()

	return fn()
}

// read returns the stored items. A missing file is an empty store.
func (s *FileStore) read() (map[string]string, error) {
	items := make(map[string]string)
	// #nosec G304: path is chosen by the user or derived from XDG.
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read data file %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w %s: %w", errCorrupt, s.path, err)
	}
	return items, nil
}

// readForUpdate is read for writers. An unparseable document is moved to
// CorruptSuffix and replaced by an empty one.
func (s *FileStore) readForUpdate() (map[string]string, error) {
	items, err := s.read()
	if !errors.Is(err, errCorrupt) {
		return items, err
	}
	logger.Warnf("Moving unreadable data file aside: %v", err)
	if err := os.Rename(s.path, s.path+CorruptSuffix); err != nil {
		return nil, fmt.Errorf("failed to move unreadable data file aside: %w", err)
	}
	return make(map[string]string), nil
}

// write replaces the file atomically.
func (s *FileStore) write(items map[string]string) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}
	if err := fileutils.AtomicWriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}
