// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func exerciseProvider(t *testing.T, p Provider) {
	t.Helper()

	_, err := p.Get("svc", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.Set("svc", "k", "v1"))
	got, err := p.Get("svc", "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, p.Set("svc", "k", "v2"))
	got, err = p.Get("svc", "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, p.Delete("svc", "k"))
	_, err = p.Get("svc", "k")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, p.Delete("svc", "k"), "deleting a missing key is not an error")
	assert.True(t, p.IsAvailable())
}

func TestMemoryProvider(t *testing.T) {
	t.Parallel()

	p := NewMemoryProvider()
	exerciseProvider(t, p)
	assert.Equal(t, "memory", p.Name())
}

func TestKeyringProvider(t *testing.T) { //nolint:paralleltest // keyring.MockInit swaps a global
	keyring.MockInit()

	p := NewKeyringProvider()
	exerciseProvider(t, p)
	assert.Equal(t, "keyring", p.Name())
}

func TestProbeKeyIsUnique(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, probeKey(), probeKey())
}
