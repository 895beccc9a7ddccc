// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of a JWT bearer token. The signature is
// not checked here; the backend does that on every call. ok is false for
// opaque tokens and tokens without exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the stored token carries an exp claim before now.
// A signed-in user with an expired token still passes RequireAuth; the next
// call gets a 401 and the client asks them to sign in again.
func (p *Provider) Expired(now time.Time) bool {
	exp, ok := TokenExpiry(p.Token())
	return ok && now.After(exp)
}
