package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and signs in. While the API is unreachable
// only the demo account is accepted.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	s, err := a.sessions.Login(ctx, email, string(password))
	if err != nil {
		return describeAuthError(err)
	}

	if s.Demo {
		fmt.Fprintln(a.out, "Signed in with the offline demo account")
	} else {
		fmt.Fprintf(a.out, "Signed in as %s\n", displayName(s))
	}
	a.printRefresh(a.store.Refresh(ctx))
	return nil
}

// Register prompts for account details and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	s, err := a.sessions.Register(ctx, &client.RegisterRequest{Email: email, Password: string(password), Name: name})
	if err != nil {
		return describeAuthError(err)
	}
	fmt.Fprintf(a.out, "Account created. Signed in as %s\n", displayName(s))
	a.store.Refresh(ctx)
	return nil
}

// Logout ends the session and forgets cached data of the signed-in user.
func (a *App) Logout(ctx context.Context) error {
	a.router.Wait()
	a.sessions.Logout(ctx)
	a.store.Reset()
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func describeAuthError(err error) error {
	var authErr *services.AuthError
	if !errors.As(err, &authErr) {
		return err
	}
	switch authErr.Reason {
	case services.ReasonInvalidCredentials:
		return errors.New("invalid email or password")
	case services.ReasonOffline:
		if authErr.Err == nil {
			return errors.New("offline")
		}
		return fmt.Errorf("offline: %w", authErr.Err)
	case services.ReasonUnavailable:
		return errors.New("service unavailable, try again later")
	case services.ReasonSessionExpired:
		return errors.New("session expired, sign in again")
	default:
		return err
	}
}
