// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/stacklok/batchauth/pkg/logger"
)

// KeyringProvider stores secrets in the OS credential manager
// (Keychain, Windows Credential Manager, Secret Service).
type KeyringProvider struct{}

// NewKeyringProvider returns a provider backed by the OS keyring.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{}
}

// Set implements Provider.
func (*KeyringProvider) Set(service, key, value string) error {
	if err := keyring.Set(service, key, value); err != nil {
		return fmt.Errorf("failed to store %s/%s in keyring: %w", service, key, err)
	}
	return nil
}

// Get implements Provider.
func (*KeyringProvider) Get(service, key string) (string, error) {
	value, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s from keyring: %w", service, key, err)
	}
	return value, nil
}

// Delete implements Provider.
func (*KeyringProvider) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("failed to delete %s/%s from keyring: %w", service, key, err)
}

// IsAvailable writes, reads back and deletes a probe entry.
func (p *KeyringProvider) IsAvailable() bool {
	key := probeKey()
	if err := keyring.Set(DefaultService, key, "probe"); err != nil {
		logger.Debugf("keyring unavailable: %v", err)
		return false
	}
	defer func() {
		if err := keyring.Delete(DefaultService, key); err != nil {
			logger.Debugf("failed to remove keyring probe entry: %v", err)
		}
	}()
	got, err := p.Get(DefaultService, key)
	return err == nil && got == "probe"
}

// Name implements Provider.
func (*KeyringProvider) Name() string {
	return "keyring"
}
