// Package client talks to the Health Records auth API.
//
// HTTPClient issues the JSON calls (login, refresh, logout, me). Its
// transport is an AuthTransport, which attaches the stored access token to
// every call and renews the session when the token has expired or the
// server answers 401. Renewal is single-flight: concurrent requests share
// one refresh call and are all replayed with its result.
//
// Failures are reported with sentinel errors that callers match with
// errors.Is: ErrUnavailable, ErrUnauthorized and ErrSessionEnded. Other
// non-2xx answers come back as *APIError.
//
// Ping checks the server gRPC health endpoint and backs the CLI online
// indicator.
package client
