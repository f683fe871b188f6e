// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package token

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresOn time.Time
		margin    time.Duration
		want      bool
	}{
		{"an hour left", now.Add(time.Hour), SafetyMargin, false},
		{"one minute left is inside the margin", now.Add(time.Minute), SafetyMargin, true},
		{"exactly at the margin boundary", now.Add(SafetyMargin), SafetyMargin, true},
		{"just outside the margin", now.Add(SafetyMargin + time.Second), SafetyMargin, false},
		{"already expired", now.Add(-time.Minute), SafetyMargin, true},
		{"no margin, not yet expired", now.Add(time.Second), 0, false},
		{"no margin, expiring now", now, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tok := AccessToken{AccessToken: "a", ExpiresOn: tt.expiresOn}
			assert.Equal(t, tt.want, tok.Expired(now, tt.margin))
		})
	}
}

func TestAccessToken_OAuth2(t *testing.T) {
	t.Parallel()

	expires := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	got := AccessToken{AccessToken: "at", RefreshToken: "rt", ExpiresOn: expires}.OAuth2()

	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.Equal(t, expires.Add(-SafetyMargin), got.Expiry)
}

func TestAccessToken_JSON(t *testing.T) {
	t.Parallel()

	tok := AccessToken{
		AccessToken:  "at",
		ExpiresOn:    time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
		RefreshToken: "rt",
		Resource:     "https://batch.core.windows.net/",
	}
	data, err := json.Marshal(tok)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expires_on":"2024-05-01T08:30:00Z"`)

	var back AccessToken
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tok, back)
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache()
	first := AccessToken{AccessToken: "first", ExpiresOn: time.Now().Add(time.Hour)}
	second := AccessToken{AccessToken: "second", ExpiresOn: time.Now().Add(time.Hour)}

	_, ok := c.GetToken("tenant1", "batch")
	assert.False(t, ok)

	c.StoreToken("tenant1", "batch", first)
	got, ok := c.GetToken("tenant1", "batch")
	require.True(t, ok)
	assert.Equal(t, "first", got.AccessToken)

	t.Run("keys are exact match", func(t *testing.T) {
		_, ok := c.GetToken("tenant1", "appInsights")
		assert.False(t, ok)
		_, ok = c.GetToken("tenant-2", "batch")
		assert.False(t, ok)
	})

	c.StoreToken("tenant1", "batch", second)
	got, _ = c.GetToken("tenant1", "batch")
	assert.Equal(t, "second", got.AccessToken, "new tokens replace old ones")
	assert.Equal(t, 1, c.Len())

	expired := AccessToken{AccessToken: "expired", ExpiresOn: time.Now().Add(-time.Hour)}
	c.StoreToken("tenant1", "arm", expired)
	got, ok = c.GetToken("tenant1", "arm")
	require.True(t, ok, "the cache does not apply expiry policy")
	assert.Equal(t, "expired", got.AccessToken)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
