// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -destination=mocks/mock_decoder.go -package=mocks -source=decoder.go Decoder

// ErrTokenDecode is returned when an id_token cannot be decoded.
var ErrTokenDecode = errors.New("failed to decode id token")

// Decoder turns an id_token into an AADUser.
type Decoder interface {
	Decode(idToken string) (*AADUser, error)
}

// JWTDecoder decodes the token payload without verifying the signature.
// The token is received directly from the authority over TLS.
type JWTDecoder struct {
	parser *jwt.Parser
}

var _ Decoder = (*JWTDecoder)(nil)

// NewJWTDecoder returns a decoder.
func NewJWTDecoder() *JWTDecoder {
	return &JWTDecoder{parser: jwt.NewParser(jwt.WithoutClaimsValidation())}
}

// Decode implements Decoder.
func (d *JWTDecoder) Decode(idToken string) (*AADUser, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenDecode)
	}

	c := &claims{}
	if _, _, err := d.parser.ParseUnverified(idToken, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenDecode, err)
	}
	if c.Key() == "" {
		return nil, fmt.Errorf("%w: token has neither upn nor unique_name", ErrTokenDecode)
	}

	u := c.AADUser
	return &u, nil
}

// claims adapts AADUser to jwt.Claims so the parser decodes straight into it.
type claims struct {
	AADUser
}

func (c *claims) GetExpirationTime() (*jwt.NumericDate, error) { return numericDate(c.Exp), nil }
func (c *claims) GetIssuedAt() (*jwt.NumericDate, error)       { return numericDate(c.Iat), nil }
func (c *claims) GetNotBefore() (*jwt.NumericDate, error)      { return numericDate(c.Nbf), nil }
func (c *claims) GetIssuer() (string, error)                   { return c.Iss, nil }
func (c *claims) GetSubject() (string, error)                  { return c.Sub, nil }

func (c *claims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Aud == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Aud}, nil
}

func numericDate(unix int64) *jwt.NumericDate {
	if unix == 0 {
		return nil
	}
	return jwt.NewNumericDate(time.Unix(unix, 0))
}
