// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultMaxResponseSize caps response bodies read by FetchJSON (1MB).
	DefaultMaxResponseSize = 1024 * 1024

	// DefaultErrorPreviewSize caps the body kept on an HTTPError.
	DefaultErrorPreviewSize = 1024

	// ContentTypeJSON is the JSON media type.
	ContentTypeJSON = "application/json"

	// ContentTypeFormURLEncoded is the form media type used by token endpoints.
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)

// HTTPError is a non-200 response.
type HTTPError struct {
	StatusCode int
	// Body is a preview limited to DefaultErrorPreviewSize bytes.
	Body string
	URL  string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request to %s failed with status %d", e.URL, e.StatusCode)
}

// IsHTTPError reports whether err is an HTTPError with statusCode.
// A statusCode of 0 matches any HTTPError.
func IsHTTPError(err error, statusCode int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	return statusCode == 0 || httpErr.StatusCode == statusCode
}

// FetchOption configures a fetch request.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	method       string
	headers      http.Header
	body         io.Reader
	maxSize      int64
	errorHandler func(*http.Response, []byte) error
}

// WithMethod sets the HTTP method.
func WithMethod(method string) FetchOption {
	return func(o *fetchOptions) { o.method = method }
}

// WithHeader sets a request header.
func WithHeader(key, value string) FetchOption {
	return func(o *fetchOptions) { o.headers.Set(key, value) }
}

// WithBearerToken sets the Authorization header.
func WithBearerToken(token string) FetchOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithBody sets the request body.
func WithBody(body io.Reader) FetchOption {
	return func(o *fetchOptions) { o.body = body }
}

// WithMaxResponseSize overrides DefaultMaxResponseSize.
func WithMaxResponseSize(size int64) FetchOption {
	return func(o *fetchOptions) { o.maxSize = size }
}

// WithErrorHandler lets the caller turn a non-200 response into a typed
// error. Returning nil falls back to *HTTPError.
func WithErrorHandler(handler func(*http.Response, []byte) error) FetchOption {
	return func(o *fetchOptions) { o.errorHandler = handler }
}

// FetchJSON performs a request and decodes the JSON body into T.
func FetchJSON[T any](ctx context.Context, client HTTPClient, requestURL string, opts ...FetchOption) (*T, error) {
	options := &fetchOptions{
		method:  http.MethodGet,
		headers: make(http.Header),
		maxSize: DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.headers.Get("Accept") == "" {
		options.headers.Set("Accept", ContentTypeJSON)
	}

	req, err := http.NewRequestWithContext(ctx, options.method, requestURL, options.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = options.headers

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, options.maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if options.errorHandler != nil {
			if customErr := options.errorHandler(resp, body); customErr != nil {
				return nil, customErr
			}
		}
		preview := string(body)
		if len(preview) > DefaultErrorPreviewSize {
			preview = preview[:DefaultErrorPreviewSize]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: preview, URL: requestURL}
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), ContentTypeJSON) {
		return nil, fmt.Errorf("unexpected content type: %q", ct)
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return &data, nil
}

// FetchJSONWithForm POSTs form as application/x-www-form-urlencoded and
// decodes the JSON response.
func FetchJSONWithForm[T any](
	ctx context.Context,
	client HTTPClient,
	requestURL string,
	form url.Values,
	opts ...FetchOption,
) (*T, error) {
	formOpts := []FetchOption{
		WithMethod(http.MethodPost),
		WithHeader("Content-Type", ContentTypeFormURLEncoded),
		WithBody(strings.NewReader(form.Encode())),
	}
	return FetchJSON[T](ctx, client, requestURL, append(formOpts, opts...)...)
}
