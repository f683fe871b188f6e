// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package accesstoken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/batchauth/pkg/aad/environment"
	"github.com/stacklok/batchauth/pkg/aad/token"
	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/networking"
)

const instrumentationName = "github.com/stacklok/batchauth/pkg/aad/accesstoken"

// tokenResponse is the v1 token endpoint response. AAD returns the numeric
// fields as strings; some proxies return numbers.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	Resource     string      `json:"resource"`
	ExpiresOn    flexibleInt `json:"expires_on"`
	ExpiresIn    flexibleInt `json:"expires_in"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// flexibleInt decodes an integer given either as a JSON number or string.
type flexibleInt int64

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", data, err)
	}
	*f = flexibleInt(v)
	return nil
}

// HTTPService is the Service implementation talking to AAD.
type HTTPService struct {
	env         environment.AzureEnvironment
	clientID    string
	redirectURI string
	client      networking.HTTPClient
	tracer      trace.Tracer
	now         func() time.Time
}

var _ Service = (*HTTPService)(nil)

// Option configures an HTTPService.
type Option func(*HTTPService)

// WithHTTPClient sets the HTTP client. Defaults to a client with
// networking.HTTPTimeout.
func WithHTTPClient(client networking.HTTPClient) Option {
	return func(s *HTTPService) { s.client = client }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *HTTPService) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithClock overrides time.Now, used for expires_in fallback.
func WithClock(now func() time.Time) Option {
	return func(s *HTTPService) { s.now = now }
}

// NewHTTPService returns a service for env and the registered client.
// redirectURI must match the one used for authorization.
func NewHTTPService(env environment.AzureEnvironment, clientID, redirectURI string, opts ...Option) *HTTPService {
	s := &HTTPService{
		env:         env,
		clientID:    clientID,
		redirectURI: redirectURI,
		client:      &http.Client{Timeout: networking.HTTPTimeout},
		tracer:      otel.GetTracerProvider().Tracer(instrumentationName),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redeem implements Service.
func (s *HTTPService) Redeem(ctx context.Context, resource, tenant, code string) (token.AccessToken, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {s.clientID},
		"code":         {code},
		"redirect_uri": {s.redirectURI},
		"resource":     {resource},
	}
	return s.exchange(ctx, OpRedeem, resource, tenant, form)
}

// Refresh implements Service.
func (s *HTTPService) Refresh(ctx context.Context, resource, tenant, refreshToken string) (token.AccessToken, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.clientID},
		"refresh_token": {refreshToken},
		"resource":      {resource},
	}
	return s.exchange(ctx, OpRefresh, resource, tenant, form)
}

func (s *HTTPService) exchange(
	ctx context.Context, op, resource, tenant string, form url.Values,
) (_ token.AccessToken, retErr error) {
	ctx, span := s.tracer.Start(ctx, "aad."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("aad.tenant", tenant),
			attribute.String("aad.resource", resource),
			attribute.String("aad.environment", s.env.ID),
		),
	)
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()

	tokenURL := s.env.TokenURL(tenant)
	logger.Debugw("Exchanging token", "op", op, "tenant", tenant, "resource", resource)

	resp, err := networking.FetchJSONWithForm[tokenResponse](ctx, s.client, tokenURL, form,
		networking.WithErrorHandler(func(r *http.Response, body []byte) error {
			return parseErrorResponse(op, r.StatusCode, body)
		}),
	)
	if err != nil {
		var exErr *ExchangeError
		if errors.As(err, &exErr) {
			return token.AccessToken{}, exErr
		}
		return token.AccessToken{}, &ExchangeError{Op: op, cause: err}
	}

	if resp.AccessToken == "" {
		return token.AccessToken{}, &ExchangeError{
			Op:    op,
			Code:  "invalid_response",
			cause: errors.New("response has no access_token"),
		}
	}

	expiresOn := time.Unix(int64(resp.ExpiresOn), 0)
	if resp.ExpiresOn == 0 {
		if resp.ExpiresIn == 0 {
			return token.AccessToken{}, &ExchangeError{
				Op:    op,
				Code:  "invalid_response",
				cause: errors.New("response has neither expires_on nor expires_in"),
			}
		}
		expiresOn = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	span.SetAttributes(attribute.Bool("aad.refresh_token_issued", resp.RefreshToken != ""))
	return token.AccessToken{
		AccessToken:  resp.AccessToken,
		ExpiresOn:    expiresOn,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Resource:     resp.Resource,
	}, nil
}

func parseErrorResponse(op string, status int, body []byte) error {
	exErr := &ExchangeError{Op: op, StatusCode: status}
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		exErr.Code = e.Error
		exErr.Description = e.ErrorDescription
		return exErr
	}
	exErr.cause = fmt.Errorf("token endpoint returned status %d", status)
	return exErr
}
