package cli

import (
	"context"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/models"
)

func (a *App) OpenAccount(ctx context.Context) error {
	u := a.ledger.CurrentUser(ctx)
	if u == nil {
		return a.fail(ctx, common.ErrUnauthenticated)
	}
	name, err := a.ask("Enter account owner name")
	if err != nil {
		return a.fail(ctx, err)
	}
	acc, err := a.ledger.CreateAccount(ctx, models.CreateAccountParams{
		UserID:     u.ID,
		OwnerEmail: u.Email,
		OwnerName:  name,
	})
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Account %s-%s opened\n", acc.Agency, acc.AccountNumber)
	return nil
}

func (a *App) Account(ctx context.Context) error {
	acc, err := a.ledger.AccountDetails(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Agency:  %s\nAccount: %s\nOwner:   %s\nBalance: %s\n",
		acc.Agency, acc.AccountNumber, acc.OwnerName, money(acc.Balance))
	return nil
}
