package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/healthrecords/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = common.ErrorUnauthorized
	// ErrSessionEnded means the stored session could not be renewed and was
	// discarded. The user has to log in again.
	ErrSessionEnded = errors.New("session ended, please log in again")
)

// APIError is a non-2xx response that carried a response envelope.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%d: %s (%s)", e.StatusCode, e.Message, strings.Join(e.Errors, "; "))
}

// Unwrap lets callers match server faults with errors.Is(err, common.ErrorInternal).
func (e *APIError) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError {
		return common.ErrorInternal
	}
	return nil
}
