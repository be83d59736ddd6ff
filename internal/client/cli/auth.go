package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/client/client"
	"github.com/dmitrijs2005/healthrecords/internal/common"
)

// Prompt seams, swapped in tests.
var (
	getSimpleText = Prompt
	getPassword   = PromptSecret
)

// Login prompts for a username (or email) and password and signs in.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Username or email", a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		return ErrEmptyInput
	}

	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	if len(password) == 0 {
		return ErrEmptyInput
	}

	user, err := a.authService.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

// Logout always drops the local session. A server-side failure is still
// reported.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		fmt.Fprintln(a.out, "Local session cleared")
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.authService.Status(ctx)
	if err != nil {
		return err
	}
	if !st.LoggedIn {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s <%s>, role %s\n", st.User.Username, st.User.Email, st.User.Role)
	fmt.Fprintf(a.out, "Access token expires at %s\n", st.AccessTokenExpiresAt.Local().Format(time.DateTime))
	fmt.Fprintf(a.out, "Session expires at %s\n", st.RefreshTokenExpiresAt.Local().Format(time.DateTime))
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.authService.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "ID: %d\nUsername: %s\nEmail: %s\nRole: %s\n", u.ID, u.Username, u.Email, u.Role)
	return nil
}

// describe turns client errors into a line for the user.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrSessionEnded):
		return "your session has ended, please log in again"
	case errors.Is(err, client.ErrUnauthorized):
		return "not logged in"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return err.Error()
	}
}
