// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/batchauth/pkg/versions"
)

type payload struct {
	Message string `json:"message"`
}

func TestValidateEndpointURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https remote", "https://login.microsoftonline.com/common/oauth2/token", false},
		{"http loopback ip", "http://127.0.0.1:8080/token", false},
		{"http localhost", "http://localhost:9000/callback", false},
		{"http remote", "http://login.microsoftonline.com/common", true},
		{"missing host", "https:///path", true},
		{"unparseable", "://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateEndpointURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(payload{Message: "hello"})
	}))
	t.Cleanup(server.Close)

	got, err := FetchJSON[payload](context.Background(), server.Client(), server.URL, WithBearerToken("abc"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Message)
}

func TestFetchJSONWithForm(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ContentTypeFormURLEncoded, r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload{Message: r.PostForm.Get("grant_type")})
	}))
	t.Cleanup(server.Close)

	form := url.Values{"grant_type": {"refresh_token"}}
	got, err := FetchJSONWithForm[payload](context.Background(), server.Client(), server.URL, form)
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", got.Message)
}

func TestFetchJSON_Errors(t *testing.T) {
	t.Parallel()

	t.Run("non-200 returns HTTPError", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		t.Cleanup(server.Close)

		_, err := FetchJSON[payload](context.Background(), server.Client(), server.URL)
		require.Error(t, err)
		assert.True(t, IsHTTPError(err, http.StatusBadRequest))
		assert.True(t, IsHTTPError(err, 0))
		assert.False(t, IsHTTPError(err, http.StatusNotFound))
	})

	t.Run("custom error handler wins", func(t *testing.T) {
		t.Parallel()
		sentinel := errors.New("provider said no")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(server.Close)

		_, err := FetchJSON[payload](context.Background(), server.Client(), server.URL,
			WithErrorHandler(func(*http.Response, []byte) error { return sentinel }))
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		}))
		t.Cleanup(server.Close)

		_, err := FetchJSON[payload](context.Background(), server.Client(), server.URL)
		assert.ErrorContains(t, err, "unexpected content type")
	})
}

func TestBuiltClientRejectsPlainHTTPRemote(t *testing.T) {
	t.Parallel()

	client, err := NewHTTPClientBuilder().Build()
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	assert.ErrorContains(t, err, "must use HTTPS")
}

func TestBuiltClientSetsUserAgent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, versions.UserAgent(), r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	client, err := NewHTTPClientBuilder().Build()
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestFindOrUsePort(t *testing.T) {
	t.Parallel()

	t.Run("zero picks a free port", func(t *testing.T) {
		t.Parallel()
		port, err := FindOrUsePort(0)
		require.NoError(t, err)
		assert.Greater(t, port, 0)
	})

	t.Run("busy port is an error", func(t *testing.T) {
		t.Parallel()
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })

		_, err = FindOrUsePort(l.Addr().(*net.TCPAddr).Port)
		assert.ErrorContains(t, err, "already in use")
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()
		_, err := FindOrUsePort(70000)
		assert.Error(t, err)
	})
}
