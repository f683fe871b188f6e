// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authorization_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/batchauth/pkg/aad/authorization"
	"github.com/stacklok/batchauth/pkg/aad/authorization/mocks"
	"github.com/stacklok/batchauth/pkg/aad/environment"
	splashmocks "github.com/stacklok/batchauth/pkg/splash/mocks"
)

const (
	testClientID    = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"
	testRedirectURI = "http://localhost:8765/callback"
)

func newAuthorizer(t *testing.T, nav authorization.Navigator, env environment.AzureEnvironment) *authorization.UserAuthorization {
	t.Helper()
	a, err := authorization.NewUserAuthorization(authorization.Config{
		Environment: env,
		ClientID:    testClientID,
		RedirectURI: testRedirectURI,
	}, nav, nil)
	require.NoError(t, err)
	return a
}

// redirectWith answers a navigation with params plus the request's state.
func redirectWith(params url.Values) func(context.Context, string, bool) (url.Values, error) {
	return func(_ context.Context, authorizeURL string, _ bool) (url.Values, error) {
		u, err := url.Parse(authorizeURL)
		if err != nil {
			return nil, err
		}
		out := url.Values{"state": {u.Query().Get("state")}}
		for k, v := range params {
			out[k] = v
		}
		return out, nil
	}
}

func success() url.Values {
	return url.Values{"code": {"somecode"}, "id_token": {"someidtoken"}, "session_state": {"s"}}
}

func TestNewUserAuthorization_Validation(t *testing.T) {
	t.Parallel()

	nav := mocks.NewMockNavigator(gomock.NewController(t))

	_, err := authorization.NewUserAuthorization(authorization.Config{RedirectURI: testRedirectURI}, nav, nil)
	assert.ErrorContains(t, err, "client ID")

	_, err = authorization.NewUserAuthorization(authorization.Config{ClientID: testClientID}, nav, nil)
	assert.ErrorContains(t, err, "redirect URI")

	_, err = authorization.NewUserAuthorization(authorization.Config{ClientID: testClientID, RedirectURI: testRedirectURI}, nil, nil)
	assert.ErrorContains(t, err, "navigator")
}

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()

	a := newAuthorizer(t, mocks.NewMockNavigator(gomock.NewController(t)), environment.AzureChina)

	u, err := url.Parse(a.AuthorizeURL("tenant1", "st", "no", true))
	require.NoError(t, err)
	assert.Equal(t, "login.chinacloudapi.cn", u.Host)
	assert.Equal(t, "/tenant1/oauth2/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "id_token code", q.Get("response_type"))
	assert.Equal(t, "form_post", q.Get("response_mode"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, environment.AzureChina.ARMResource, q.Get("resource"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "no", q.Get("nonce"))
	assert.Equal(t, "none", q.Get("prompt"))

	u, err = url.Parse(a.AuthorizeURL("common", "st", "no", false))
	require.NoError(t, err)
	assert.False(t, u.Query().Has("prompt"))

	assert.Equal(t, "https://login.chinacloudapi.cn/tenant1/oauth2/logout", a.LogoutURL("tenant1"))
}

func TestAuthorizeTrySilentFirst_SilentSucceeds(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), false).DoAndReturn(redirectWith(success()))

	got, err := newAuthorizer(t, nav, environment.Azure).AuthorizeTrySilentFirst(context.Background(), "tenant1")
	require.NoError(t, err)
	assert.Equal(t, &authorization.Result{IDToken: "someidtoken", Code: "somecode"}, got)
}

func TestAuthorizeTrySilentFirst_FallsBackToInteractive(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	screen := splashmocks.NewMockScreen(ctrl)

	gomock.InOrder(
		nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), false).DoAndReturn(redirectWith(url.Values{
			"error":             {"login_required"},
			"error_description": {"AADSTS50058: A silent sign-in request was sent but no user is signed in."},
		})),
		screen.EXPECT().UpdateMessage(gomock.Any()),
		screen.EXPECT().Hide(),
		nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), true).DoAndReturn(redirectWith(success())),
		screen.EXPECT().Show(),
	)

	a, err := authorization.NewUserAuthorization(authorization.Config{
		ClientID: testClientID, RedirectURI: testRedirectURI,
	}, nav, screen)
	require.NoError(t, err)

	got, err := a.AuthorizeTrySilentFirst(context.Background(), "tenant1")
	require.NoError(t, err)
	assert.Equal(t, "somecode", got.Code)
}

func TestAuthorizeTrySilentFirst_SilentCancelledDoesNotPrompt(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), false).Return(nil, context.Canceled)

	_, err := newAuthorizer(t, nav, environment.Azure).AuthorizeTrySilentFirst(context.Background(), "tenant1")
	assert.ErrorIs(t, err, authorization.ErrCancelled)
}

func TestAuthorizeTrySilentFirst_InteractiveErrors(t *testing.T) {
	t.Parallel()

	silentFail := redirectWith(url.Values{"error": {"interaction_required"}})

	tests := []struct {
		name        string
		interactive func(context.Context, string, bool) (url.Values, error)
		wantErr     error
		wantCode    string
	}{
		{
			name: "user cancels",
			interactive: redirectWith(url.Values{
				"error":             {"access_denied"},
				"error_description": {"AADSTS65004: User declined to consent to access the app."},
			}),
			wantErr: authorization.ErrCancelled,
		},
		{
			name: "interrupted wait",
			interactive: func(context.Context, string, bool) (url.Values, error) {
				return nil, authorization.ErrCancelled
			},
			wantErr: authorization.ErrCancelled,
		},
		{
			name: "provider error",
			interactive: redirectWith(url.Values{
				"error":             {"invalid_client"},
				"error_description": {"AADSTS700016: Application not found in the directory."},
			}),
			wantErr:  authorization.ErrFlow,
			wantCode: "invalid_client",
		},
		{
			name:        "access denied by policy is not a cancel",
			interactive: redirectWith(url.Values{"error": {"access_denied"}, "error_description": {"AADSTS53003: blocked"}}),
			wantErr:     authorization.ErrFlow,
			wantCode:    "access_denied",
		},
		{
			name:        "missing code",
			interactive: redirectWith(url.Values{"id_token": {"x"}}),
			wantErr:     authorization.ErrFlow,
			wantCode:    authorization.CodeMissingCode,
		},
		{
			name:        "missing id token",
			interactive: redirectWith(url.Values{"code": {"x"}}),
			wantErr:     authorization.ErrFlow,
			wantCode:    authorization.CodeMissingIDToken,
		},
		{
			name: "state mismatch",
			interactive: func(context.Context, string, bool) (url.Values, error) {
				return url.Values{"state": {"forged"}, "code": {"c"}, "id_token": {"i"}}, nil
			},
			wantErr:  authorization.ErrFlow,
			wantCode: authorization.CodeStateMismatch,
		},
		{
			name: "navigation failure",
			interactive: func(context.Context, string, bool) (url.Values, error) {
				return nil, errors.New("address already in use")
			},
			wantErr:  authorization.ErrFlow,
			wantCode: authorization.CodeNavigation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			nav := mocks.NewMockNavigator(ctrl)
			nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), false).DoAndReturn(silentFail)
			nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), true).DoAndReturn(tt.interactive)

			got, err := newAuthorizer(t, nav, environment.Azure).AuthorizeTrySilentFirst(context.Background(), "t")
			assert.Nil(t, got)
			require.ErrorIs(t, err, tt.wantErr)

			if tt.wantCode != "" {
				var flowErr *authorization.FlowError
				require.True(t, errors.As(err, &flowErr))
				assert.Equal(t, tt.wantCode, flowErr.Code)
			}
		})
	}
}

func TestAuthorize_SilentAccessDeniedIsFlowError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	nav := mocks.NewMockNavigator(ctrl)
	nav.EXPECT().Navigate(gomock.Any(), gomock.Any(), false).DoAndReturn(redirectWith(url.Values{
		"error": {"access_denied"}, "error_description": {"The user has cancelled"},
	}))

	_, err := newAuthorizer(t, nav, environment.Azure).Authorize(context.Background(), "t", true)
	assert.ErrorIs(t, err, authorization.ErrFlow)
	assert.NotErrorIs(t, err, authorization.ErrCancelled)
}
