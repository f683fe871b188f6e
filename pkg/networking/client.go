// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package networking contains the HTTP plumbing shared by the identity
// provider and Azure Resource Manager clients.
package networking

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/stacklok/batchauth/pkg/versions"
)

// HTTPTimeout bounds every outgoing request end to end.
const HTTPTimeout = 30 * time.Second

// HTTPClient is the subset of *http.Client used by this module.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// IsLocalhost reports whether host (with or without port) is a loopback name.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ValidateEndpointURL checks that endpoint is an absolute HTTPS URL.
// Plain HTTP is accepted for loopback hosts so tests can use httptest.
func ValidateEndpointURL(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", endpoint)
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme == "http" && IsLocalhost(u.Host) {
		return nil
	}
	return fmt.Errorf("URL %q must use HTTPS", endpoint)
}

// validatingTransport rejects requests to non-HTTPS remote endpoints and
// stamps the user agent.
type validatingTransport struct {
	next http.RoundTripper
}

func (t *validatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := ValidateEndpointURL(req.URL.String()); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", versions.UserAgent())
	}
	return t.next.RoundTrip(req)
}

// HTTPClientBuilder assembles the *http.Client used against AAD and ARM.
type HTTPClientBuilder struct {
	timeout               time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	caCertPath            string
}

// NewHTTPClientBuilder returns a builder with the default timeouts.
func NewHTTPClientBuilder() *HTTPClientBuilder {
	return &HTTPClientBuilder{
		timeout:               HTTPTimeout,
		tlsHandshakeTimeout:   10 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
	}
}

// WithCABundle adds a PEM bundle to the trusted roots, for proxies that
// intercept TLS.
func (b *HTTPClientBuilder) WithCABundle(path string) *HTTPClientBuilder {
	b.caCertPath = path
	return b
}

// WithTimeout overrides the overall request timeout.
func (b *HTTPClientBuilder) WithTimeout(d time.Duration) *HTTPClientBuilder {
	b.timeout = d
	return b
}

// Build creates the configured client.
func (b *HTTPClientBuilder) Build() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.responseHeaderTimeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if b.caCertPath != "" {
		// #nosec G304 - path comes from the user's own configuration
		caCert, err := os.ReadFile(b.caCertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate bundle: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate bundle")
		}
		transport.TLSClientConfig.RootCAs = pool
	}

	return &http.Client{
		Transport: &validatingTransport{next: transport},
		Timeout:   b.timeout,
	}, nil
}
