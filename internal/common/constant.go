// Package common contains shared constants and sentinel errors used across
// Health Records server and client components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
// It is matched case-insensitively on the server side.
const BearerPrefix = "Bearer "

// RefreshTokenType is the value of the token_type claim that marks a refresh token.
const RefreshTokenType = "refresh"

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "User"
