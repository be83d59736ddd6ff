package rest

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/healthrecords/internal/api"
)

// Client-facing messages.
const (
	msgLoginSuccess       = "Login successful"
	msgRefreshSuccess     = "Token refreshed successfully"
	msgLogoutSuccess      = "Logged out successfully"
	msgProfile            = "User profile"
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgLogoutFailed       = "Error while logging out"
	msgInvalidInput       = "Invalid input data"
	msgUnauthorized       = "Unauthorized"
	msgTooManyRequests    = "Too many login attempts, try again later"
	msgInternal           = "Internal server error"
	msgUnexpected         = "An unexpected error occurred"
)

func writeJSON[T any](w http.ResponseWriter, env api.Envelope[T]) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}

func success[T any](w http.ResponseWriter, msg string, data *T) {
	writeJSON(w, api.Envelope[T]{StatusCode: http.StatusOK, Message: msg, Data: data})
}

func fail(w http.ResponseWriter, status int, msg string, errs ...string) {
	writeJSON(w, api.Envelope[api.Empty]{StatusCode: status, Message: msg, Errors: errs})
}
