package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/dmitrijs2005/pocketbank/internal/models"
)

func (a *App) AddCard(ctx context.Context) error {
	acc, err := a.ledger.AccountDetails(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	typ, err := a.ask("Enter card type (credit/debit)")
	if err != nil {
		return a.fail(ctx, err)
	}
	holder, err := a.ask("Enter cardholder name")
	if err != nil {
		return a.fail(ctx, err)
	}

	card, err := a.ledger.CreateCard(ctx, models.CreateCardParams{
		CardType:       models.CardType(strings.ToUpper(typ)),
		CardholderName: holder,
		AccountNumber:  acc.AccountNumber,
	})
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("%s card %s issued, expires %s\n", card.Brand, cryptox.MaskCardNumber(card.CardNumber), card.ExpiryDate)
	return nil
}

func (a *App) Cards(ctx context.Context) error {
	acc, err := a.ledger.AccountDetails(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	cards, err := a.ledger.ListCards(ctx, acc.AccountNumber)
	if err != nil {
		return a.fail(ctx, err)
	}
	printCards(a.out, cards)
	return nil
}

func (a *App) DeleteCard(ctx context.Context, args []string) error {
	if err := a.ledger.DeleteCard(ctx, args[0]); err != nil {
		return a.fail(ctx, err)
	}
	a.println("Card deleted")
	return nil
}
