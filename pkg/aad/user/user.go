// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package user decodes AAD identity tokens into user profiles.
package user

// AADUser is the profile carried by an AAD v1 id_token. Its JSON form is the
// token payload, so a persisted user decodes back field for field.
type AADUser struct {
	Aud        string   `json:"aud"`
	Iss        string   `json:"iss"`
	Iat        int64    `json:"iat"`
	Nbf        int64    `json:"nbf"`
	Exp        int64    `json:"exp"`
	Amr        []string `json:"amr,omitempty"`
	FamilyName string   `json:"family_name,omitempty"`
	GivenName  string   `json:"given_name,omitempty"`
	IPAddr     string   `json:"ipaddr,omitempty"`
	Name       string   `json:"name,omitempty"`
	Nonce      string   `json:"nonce,omitempty"`
	Oid        string   `json:"oid,omitempty"`
	Platf      string   `json:"platf,omitempty"`
	Sub        string   `json:"sub"`
	Tid        string   `json:"tid"`
	UniqueName string   `json:"unique_name,omitempty"`
	Upn        string   `json:"upn,omitempty"`
	Ver        string   `json:"ver,omitempty"`
}

// Key returns the stable identity of the user: the UPN, or the unique name
// for accounts without one (guests, personal accounts).
func (u *AADUser) Key() string {
	if u.Upn != "" {
		return u.Upn
	}
	return u.UniqueName
}

// DisplayName returns the name to show for the user.
func (u *AADUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Key()
}
