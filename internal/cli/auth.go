package cli

import (
	"context"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/models"
)

func (a *App) credentials() (models.Credentials, error) {
	email, err := a.ask("Enter email")
	if err != nil {
		return models.Credentials{}, err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return models.Credentials{}, err
	}
	defer common.Wipe(password)

	return models.Credentials{Email: email, Password: string(password)}, nil
}

// Register creates a user and signs it in.
func (a *App) Register(ctx context.Context) error {
	creds, err := a.credentials()
	if err != nil {
		return a.fail(ctx, err)
	}
	u, err := a.ledger.SignUp(ctx, creds)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Welcome, %s! Use 'openaccount' to open your bank account.\n", u.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	creds, err := a.credentials()
	if err != nil {
		return a.fail(ctx, err)
	}
	u, err := a.ledger.SignIn(ctx, creds)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Signed in as %s\n", displayName(u))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.ledger.SignOut(ctx); err != nil {
		return a.fail(ctx, err)
	}
	a.println("Signed out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u := a.ledger.CurrentUser(ctx)
	if u == nil {
		a.println("Not signed in")
		return nil
	}
	a.printf("%s <%s>, member since %s\n", displayName(u), u.Email, u.CreatedAt.Local().Format("2006-01-02"))
	return nil
}

// Profile changes the display name of the signed-in user.
func (a *App) Profile(ctx context.Context) error {
	u := a.ledger.CurrentUser(ctx)
	if u == nil {
		return a.fail(ctx, common.ErrUnauthenticated)
	}
	name, err := a.ask("Enter display name")
	if err != nil {
		return a.fail(ctx, err)
	}
	updated, err := a.ledger.UpdateProfile(ctx, models.ProfileUpdate{UserID: u.ID, DisplayName: name})
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Display name set to %s\n", updated.DisplayName)
	return nil
}
