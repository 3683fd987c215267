// Package common contains shared constants and sentinel errors used across
// eventhub components.
package common

import "time"

// AuthorizationHeaderName is the HTTP header that carries the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token inside the Authorization header.
const BearerPrefix = "Bearer "

const (
	// DefaultAccessTokenValidity is the lifetime of a signed access token.
	DefaultAccessTokenValidity = 15 * time.Minute
	// DefaultRefreshTokenValidity is the lifetime of a refresh token and its ledger row.
	DefaultRefreshTokenValidity = 7 * 24 * time.Hour
	// DefaultBcryptCost is the bcrypt work factor used for password digests.
	DefaultBcryptCost = 10
)
