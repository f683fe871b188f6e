// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authorization_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/batchauth/pkg/aad/authorization"
	"github.com/stacklok/batchauth/pkg/aad/environment"
)

// fakeProvider plays the identity provider: it reads the authorize URL and
// posts the redirect back to the callback like a browser would.
type fakeProvider struct {
	t      *testing.T
	params url.Values
	method string
	pages  chan string
}

func (p *fakeProvider) open(authorizeURL string) error {
	u, err := url.Parse(authorizeURL)
	if err != nil {
		return err
	}
	q := u.Query()
	form := url.Values{"state": {q.Get("state")}}
	for k, v := range p.params {
		form[k] = v
	}

	go func() {
		var resp *http.Response
		var err error
		if p.method == http.MethodGet {
			resp, err = http.Get(q.Get("redirect_uri") + "?" + form.Encode())
		} else {
			resp, err = http.PostForm(q.Get("redirect_uri"), form)
		}
		if !assert.NoError(p.t, err) {
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		p.pages <- string(body)
	}()
	return nil
}

func newNavigator(t *testing.T, p *fakeProvider, opts ...authorization.NavigatorOption) *authorization.LoopbackNavigator {
	t.Helper()
	opts = append([]authorization.NavigatorOption{authorization.WithBrowserOpener(p.open)}, opts...)
	nav, err := authorization.NewLoopbackNavigator(0, opts...)
	require.NoError(t, err)
	return nav
}

func TestLoopbackNavigator_FormPost(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{t: t, params: success(), pages: make(chan string, 1)}
	nav := newNavigator(t, p)
	assert.True(t, strings.HasPrefix(nav.RedirectURI(), "http://localhost:"))
	assert.True(t, strings.HasSuffix(nav.RedirectURI(), authorization.CallbackPath))

	a, err := authorization.NewUserAuthorization(authorization.Config{
		Environment: environment.Azure,
		ClientID:    testClientID,
		RedirectURI: nav.RedirectURI(),
	}, nav, nil)
	require.NoError(t, err)

	got, err := a.Authorize(context.Background(), "tenant1", false)
	require.NoError(t, err)
	assert.Equal(t, "somecode", got.Code)
	assert.Equal(t, "someidtoken", got.IDToken)
	assert.Contains(t, <-p.pages, "Authentication Successful")
}

func TestLoopbackNavigator_QueryRedirect(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{t: t, params: success(), method: http.MethodGet, pages: make(chan string, 1)}
	nav := newNavigator(t, p)
	authorizeURL := "https://login.microsoftonline.com/common/oauth2/authorize?" + url.Values{
		"state":        {"abc"},
		"redirect_uri": {nav.RedirectURI()},
	}.Encode()

	params, err := nav.Navigate(context.Background(), authorizeURL, true)
	require.NoError(t, err)
	assert.Equal(t, "abc", params.Get("state"))
	assert.Equal(t, "somecode", params.Get("code"))
	<-p.pages
}

func TestLoopbackNavigator_ErrorPageEscapesProviderText(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		t:      t,
		params: url.Values{"error": {"invalid_request"}, "error_description": {"<script>x</script>"}},
		pages:  make(chan string, 1),
	}
	nav := newNavigator(t, p)
	authorizeURL := "https://login.microsoftonline.com/common/oauth2/authorize?" +
		url.Values{"redirect_uri": {nav.RedirectURI()}}.Encode()

	params, err := nav.Navigate(context.Background(), authorizeURL, true)
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", params.Get("error"))

	page := <-p.pages
	assert.Contains(t, page, "Authentication Failed")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestLoopbackNavigator_SilentTimeout(t *testing.T) {
	t.Parallel()

	nav, err := authorization.NewLoopbackNavigator(0,
		authorization.WithBrowserOpener(func(string) error { return nil }),
		authorization.WithSilentTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)

	_, err = nav.Navigate(context.Background(), "https://example.invalid/authorize", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.NotErrorIs(t, err, authorization.ErrCancelled)
}

func TestLoopbackNavigator_ContextCancel(t *testing.T) {
	t.Parallel()

	nav, err := authorization.NewLoopbackNavigator(0, authorization.WithBrowserOpener(func(string) error { return nil }))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = nav.Navigate(ctx, "https://example.invalid/authorize", true)
	assert.ErrorIs(t, err, authorization.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopbackNavigator_SkipBrowser(t *testing.T) {
	t.Parallel()

	opened := false
	nav, err := authorization.NewLoopbackNavigator(0,
		authorization.WithSkipBrowser(true),
		authorization.WithBrowserOpener(func(string) error { opened = true; return nil }),
	)
	require.NoError(t, err)

	_, err = nav.Navigate(context.Background(), "https://example.invalid/authorize", false)
	require.Error(t, err, "silent sign-in cannot work without a browser")
	assert.False(t, opened)
}

func TestLoopbackNavigator_SilentBrowserFailure(t *testing.T) {
	t.Parallel()

	nav, err := authorization.NewLoopbackNavigator(0,
		authorization.WithBrowserOpener(func(string) error { return errors.New("no display") }))
	require.NoError(t, err)

	_, err = nav.Navigate(context.Background(), "https://example.invalid/authorize", false)
	assert.ErrorContains(t, err, "no display")
}

func TestLoopbackNavigator_Root(t *testing.T) {
	t.Parallel()

	nav, err := authorization.NewLoopbackNavigator(0, authorization.WithBrowserOpener(func(string) error {
		return nil
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = nav.Navigate(ctx, "https://example.invalid/authorize", true)
	}()

	root := strings.TrimSuffix(nav.RedirectURI(), authorization.CallbackPath) + "/"
	require.Eventually(t, func() bool {
		resp, err := http.Get(root)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK &&
			resp.Header.Get("X-Frame-Options") == "DENY"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestNewLoopbackNavigator_BusyPort(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	_, err = authorization.NewLoopbackNavigator(l.Addr().(*net.TCPAddr).Port)
	assert.ErrorContains(t, err, "in use")
}
