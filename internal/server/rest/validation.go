package rest

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/healthrecords/internal/api"
)

const (
	maxUsernameLen = 100
	maxPasswordLen = 100
)

// validateLogin checks shape only. A short password is left for the
// credential check so it fails as invalid credentials.
func validateLogin(req api.LoginRequest) []string {
	var errs []string

	switch {
	case strings.TrimSpace(req.Username) == "":
		errs = append(errs, "username or email is required")
	case utf8.RuneCountInString(req.Username) > maxUsernameLen:
		errs = append(errs, "username cannot exceed 100 characters")
	}

	switch n := utf8.RuneCountInString(req.Password); {
	case n == 0:
		errs = append(errs, "password is required")
	case n > maxPasswordLen:
		errs = append(errs, "password cannot exceed 100 characters")
	}

	return errs
}

func validateRefresh(req api.RefreshTokenRequest) []string {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return []string{"refresh token is required"}
	}
	return nil
}
