// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package authorization

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/browser"

	"github.com/stacklok/batchauth/pkg/logger"
	"github.com/stacklok/batchauth/pkg/networking"
)

// DefaultSilentTimeout bounds a silent navigation. The provider answers a
// prompt=none request immediately when it has a session.
const DefaultSilentTimeout = 20 * time.Second

// CallbackPath is where the provider posts the redirect.
const CallbackPath = "/callback"

var errSilentUnavailable = errors.New("silent authorization needs a browser")

// LoopbackNavigator opens the system browser and receives the redirect on a
// local HTTP server.
type LoopbackNavigator struct {
	port          int
	skipBrowser   bool
	silentTimeout time.Duration
	openURL       func(string) error

	// mu serializes navigations; they share the callback port.
	mu sync.Mutex
}

var _ Navigator = (*LoopbackNavigator)(nil)

// NavigatorOption configures a LoopbackNavigator.
type NavigatorOption func(*LoopbackNavigator)

// WithSkipBrowser prints the URL instead of opening a browser. Silent
// navigations fail immediately in this mode.
func WithSkipBrowser(skip bool) NavigatorOption {
	return func(n *LoopbackNavigator) { n.skipBrowser = skip }
}

// WithSilentTimeout overrides DefaultSilentTimeout.
func WithSilentTimeout(d time.Duration) NavigatorOption {
	return func(n *LoopbackNavigator) { n.silentTimeout = d }
}

// WithBrowserOpener replaces browser.OpenURL.
func WithBrowserOpener(open func(string) error) NavigatorOption {
	return func(n *LoopbackNavigator) { n.openURL = open }
}

// NewLoopbackNavigator listens on port, or a free port when port is 0.
func NewLoopbackNavigator(port int, opts ...NavigatorOption) (*LoopbackNavigator, error) {
	port, err := networking.FindOrUsePort(port)
	if err != nil {
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}
	n := &LoopbackNavigator{
		port:          port,
		silentTimeout: DefaultSilentTimeout,
		openURL:       browser.OpenURL,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Port returns the callback port.
func (n *LoopbackNavigator) Port() int {
	return n.port
}

// RedirectURI is the URI to register with the provider.
func (n *LoopbackNavigator) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", n.port, CallbackPath)
}

// Navigate implements Navigator.
func (n *LoopbackNavigator) Navigate(ctx context.Context, authorizeURL string, interactive bool) (url.Values, error) {
	if !interactive && n.skipBrowser {
		return nil, errSilentUnavailable
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", n.port))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	paramsChan := make(chan url.Values, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, handleCallback(paramsChan))
	mux.HandleFunc("/", handleRoot)
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Debugf("Starting callback server on port %d", n.port)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChan <- fmt.Errorf("callback server failed: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Failed to shutdown callback server: %v", err)
		}
	}()

	if n.skipBrowser {
		logger.Infof("Please open this URL in your browser: %s", authorizeURL)
	} else if err := n.openURL(authorizeURL); err != nil {
		if !interactive {
			return nil, fmt.Errorf("failed to open browser: %w", err)
		}
		logger.Warnf("Failed to open browser: %v", err)
		logger.Infof("Please manually open this URL in your browser: %s", authorizeURL)
	}

	var timeout <-chan time.Time
	if interactive {
		logger.Info("Waiting for sign-in to complete in the browser...")
	} else {
		timer := time.NewTimer(n.silentTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case params := <-paramsChan:
		return params, nil
	case err := <-errorChan:
		return nil, err
	case <-timeout:
		return nil, fmt.Errorf("silent authorization timed out after %s", n.silentTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case sig := <-sigChan:
		return nil, fmt.Errorf("%w: interrupted by signal %v", ErrCancelled, sig)
	}
}

// handleCallback accepts the redirect as a query (response_mode=query) or a
// form post (response_mode=form_post). Only the first redirect is used.
func handleCallback(paramsChan chan<- url.Values) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			writePage(w, http.StatusBadRequest, "Authentication Failed", "error", "Malformed redirect.")
			return
		}

		params := make(url.Values, len(r.Form))
		for k, v := range r.Form {
			params[k] = append([]string(nil), v...)
		}

		if errCode := params.Get("error"); errCode != "" {
			msg := errCode
			if desc := params.Get("error_description"); desc != "" {
				msg += ": " + desc
			}
			writePage(w, http.StatusBadRequest, "Authentication Failed", "error", msg)
		} else {
			writePage(w, http.StatusOK, "Authentication Successful", "success",
				"You are signed in to batchauth. You can close this window and return to the terminal.")
		}

		select {
		case paramsChan <- params:
		default:
		}
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writePage(w, http.StatusOK, "batchauth", "info",
		"Sign-in is in progress. Please complete it in your browser.")
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline';")
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; text-align: center; }
        .container { max-width: 600px; margin: 0 auto; }
        .message { padding: 20px; border-radius: 5px; margin: 20px 0; }
        .info { background-color: #e7f3ff; border: 1px solid #b3d9ff; color: #0066cc; }
        .success { background-color: #e7f6e7; border: 1px solid #b3e6b3; color: #006600; }
        .error { background-color: #ffe7e7; border: 1px solid #ffb3b3; color: #cc0000; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <div class="message %[2]s"><p>%[3]s</p></div>
    </div>
</body>
</html>`

// writePage renders a status page. message is HTML escaped.
func writePage(w http.ResponseWriter, status int, title, class, message string) {
	setSecurityHeaders(w)
	w.WriteHeader(status)
	if _, err := fmt.Fprintf(w, pageTemplate, html.EscapeString(title), class, html.EscapeString(message)); err != nil {
		logger.Warnf("Failed to write HTML content: %v", err)
	}
}
