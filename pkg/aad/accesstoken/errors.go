// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package accesstoken

import (
	"errors"
	"fmt"
)

// ErrExchange matches every *ExchangeError.
var ErrExchange = errors.New("token exchange failed")

// Operation names carried by ExchangeError.
const (
	OpRedeem  = "redeem"
	OpRefresh = "refresh"
)

// ExchangeError is returned when the token endpoint rejects a request or
// cannot be reached.
type ExchangeError struct {
	// Op is OpRedeem or OpRefresh.
	Op string
	// Code is the OAuth error code, e.g. invalid_grant. Empty for
	// transport failures.
	Code string
	// Description is the provider's error_description.
	Description string
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	cause error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: %s: %s: %s", ErrExchange, e.Op, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s: %s: %s", ErrExchange, e.Op, e.Code)
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", ErrExchange, e.Op, e.cause)
	default:
		return fmt.Sprintf("%s: %s: status %d", ErrExchange, e.Op, e.StatusCode)
	}
}

// Unwrap returns the underlying cause.
func (e *ExchangeError) Unwrap() error {
	return e.cause
}

// Is makes errors.Is(err, ErrExchange) match.
func (*ExchangeError) Is(target error) bool {
	return target == ErrExchange
}

// IsInvalidGrant reports whether err means the code or refresh token was
// rejected as expired, revoked or already used.
func IsInvalidGrant(err error) bool {
	var exErr *ExchangeError
	return errors.As(err, &exErr) && exErr.Code == "invalid_grant"
}
