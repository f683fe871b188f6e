// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package accesstoken

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stacklok/batchauth/pkg/aad/environment"
)

const (
	testClientID    = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"
	testRedirectURI = "http://localhost:8765/callback"
)

type recordedRequest struct {
	path string
	form url.Values
}

type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedRequest(nil), l.requests...)
}

func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		log.mu.Lock()
		log.requests = append(log.requests, recordedRequest{path: r.URL.Path, form: r.PostForm})
		log.mu.Unlock()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func testEnv(srv *httptest.Server) environment.AzureEnvironment {
	env := environment.Azure
	env.AADURL = srv.URL + "/"
	return env
}

func TestHTTPService_Redeem(t *testing.T) {
	t.Parallel()

	srv, requests := newTokenServer(t, http.StatusOK, `{
		"token_type": "Bearer",
		"expires_in": "3599",
		"expires_on": "1893456000",
		"resource": "https://batch.core.windows.net/",
		"access_token": "new-access",
		"refresh_token": "new-refresh"
	}`)

	svc := NewHTTPService(testEnv(srv), testClientID, testRedirectURI, WithHTTPClient(srv.Client()))
	got, err := svc.Redeem(context.Background(), "https://batch.core.windows.net/", "tenant1", "somecode")
	require.NoError(t, err)

	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.Equal(t, time.Unix(1893456000, 0), got.ExpiresOn)

	all := requests.all()
	require.Len(t, all, 1)
	req := all[0]
	assert.Equal(t, "/tenant1/oauth2/token", req.path)
	assert.Equal(t, "authorization_code", req.form.Get("grant_type"))
	assert.Equal(t, testClientID, req.form.Get("client_id"))
	assert.Equal(t, "somecode", req.form.Get("code"))
	assert.Equal(t, testRedirectURI, req.form.Get("redirect_uri"))
	assert.Equal(t, "https://batch.core.windows.net/", req.form.Get("resource"))
}

func TestHTTPService_Refresh(t *testing.T) {
	t.Parallel()

	srv, requests := newTokenServer(t, http.StatusOK,
		`{"access_token":"refreshed","expires_on":1893456000,"token_type":"Bearer"}`)

	svc := NewHTTPService(testEnv(srv), testClientID, testRedirectURI, WithHTTPClient(srv.Client()))
	got, err := svc.Refresh(context.Background(), "batch", "tenant-2", "somerefreshtoken")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", got.AccessToken)
	assert.False(t, got.HasRefreshToken())

	all := requests.all()
	require.Len(t, all, 1)
	req := all[0]
	assert.Equal(t, "/tenant-2/oauth2/token", req.path)
	assert.Equal(t, "refresh_token", req.form.Get("grant_type"))
	assert.Equal(t, "somerefreshtoken", req.form.Get("refresh_token"))
	assert.Equal(t, "batch", req.form.Get("resource"))
	assert.Empty(t, req.form.Get("code"))
}

func TestHTTPService_ExpiresInFallback(t *testing.T) {
	t.Parallel()

	srv, _ := newTokenServer(t, http.StatusOK, `{"access_token":"a","expires_in":3600}`)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	svc := NewHTTPService(testEnv(srv), testClientID, testRedirectURI,
		WithHTTPClient(srv.Client()), WithClock(func() time.Time { return now }))
	got, err := svc.Redeem(context.Background(), "r", "t", "c")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), got.ExpiresOn)
}

func TestHTTPService_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   string
		wantStatus int
		grant      bool
	}{
		{
			name:       "invalid grant",
			status:     http.StatusBadRequest,
			body:       `{"error":"invalid_grant","error_description":"AADSTS70008: The refresh token has expired."}`,
			wantCode:   "invalid_grant",
			wantStatus: http.StatusBadRequest,
			grant:      true,
		},
		{
			name:       "server error without body",
			status:     http.StatusInternalServerError,
			body:       `oops`,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:     "no access token",
			status:   http.StatusOK,
			body:     `{"expires_on":"1893456000"}`,
			wantCode: "invalid_response",
		},
		{
			name:     "no expiry",
			status:   http.StatusOK,
			body:     `{"access_token":"a"}`,
			wantCode: "invalid_response",
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"access_token":`,
		},
		{
			name:   "malformed expiry",
			status: http.StatusOK,
			body:   `{"access_token":"a","expires_on":"soon"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := newTokenServer(t, tt.status, tt.body)
			svc := NewHTTPService(testEnv(srv), testClientID, testRedirectURI, WithHTTPClient(srv.Client()))

			_, err := svc.Refresh(context.Background(), "r", "t", "rt")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExchange)

			var exErr *ExchangeError
			require.True(t, errors.As(err, &exErr))
			assert.Equal(t, OpRefresh, exErr.Op)
			assert.Equal(t, tt.wantCode, exErr.Code)
			assert.Equal(t, tt.wantStatus, exErr.StatusCode)
			assert.Equal(t, tt.grant, IsInvalidGrant(err))
		})
	}
}

func TestHTTPService_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	env := testEnv(srv)
	srv.Close()

	svc := NewHTTPService(env, testClientID, testRedirectURI)
	_, err := svc.Redeem(context.Background(), "r", "t", "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExchange)

	var exErr *ExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, OpRedeem, exErr.Op)
	assert.Zero(t, exErr.StatusCode)
}

func TestHTTPService_Spans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	srv, _ := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	svc := NewHTTPService(testEnv(srv), testClientID, testRedirectURI,
		WithHTTPClient(srv.Client()), WithTracerProvider(tp))

	_, err := svc.Refresh(context.Background(), "r", "t", "rt")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "aad.refresh", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestExchangeError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"token exchange failed: redeem: invalid_grant: code already redeemed",
		(&ExchangeError{Op: OpRedeem, Code: "invalid_grant", Description: "code already redeemed"}).Error())
	assert.Equal(t,
		"token exchange failed: refresh: status 502",
		(&ExchangeError{Op: OpRefresh, StatusCode: 502}).Error())
}
