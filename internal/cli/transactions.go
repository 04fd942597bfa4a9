package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/shopspring/decimal"
)

func (a *App) Deposit(ctx context.Context) error {
	return a.transact(ctx, models.Deposit)
}

func (a *App) Withdraw(ctx context.Context) error {
	return a.transact(ctx, models.Withdrawal)
}

func (a *App) transact(ctx context.Context, typ models.TransactionType) error {
	raw, err := a.ask("Enter amount")
	if err != nil {
		return a.fail(ctx, err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return a.fail(ctx, fmt.Errorf("%w: %q is not a number", common.ErrValidation, raw))
	}
	category, err := a.ask("Enter category (optional)")
	if err != nil {
		return a.fail(ctx, err)
	}

	t, err := a.ledger.CreateTransaction(ctx, models.CreateTransactionParams{
		Amount:   amount,
		Type:     typ,
		Category: category,
	})
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Done. New balance: %s\n", money(t.NewBalance))
	return nil
}

// History lists all transactions, optionally of one type.
func (a *App) History(ctx context.Context, args []string) error {
	var q models.TransactionQuery
	if len(args) > 0 {
		q.Type = models.TransactionType(strings.ToUpper(args[0]))
	}
	list, err := a.ledger.Transactions(ctx, q)
	if err != nil {
		return a.fail(ctx, err)
	}
	printTransactions(a.out, list)
	return nil
}

// Statement prints one page: statement [page] [size].
func (a *App) Statement(ctx context.Context, args []string) error {
	var p models.StatementParams
	for i, dst := range []*int{&p.Page, &p.PageSize} {
		if len(args) <= i {
			break
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return a.fail(ctx, common.ErrInvalidPageParams)
		}
		*dst = n
	}

	st, err := a.ledger.AccountStatement(ctx, p)
	if err != nil {
		return a.fail(ctx, err)
	}
	printTransactions(a.out, st.Transactions)
	if st.HasMore {
		a.printf("Page %d. More: statement %d %d\n", st.Page, st.Page+1, st.PageSize)
	} else {
		a.printf("Page %d (last)\n", st.Page)
	}
	return nil
}

// Yearly prints the transactions of a year grouped by month; the current
// year by default.
func (a *App) Yearly(ctx context.Context, args []string) error {
	year := time.Now().Year()
	if len(args) > 0 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			return a.fail(ctx, fmt.Errorf("%w: %q is not a year", common.ErrValidation, args[0]))
		}
		year = y
	}

	ys, err := a.ledger.YearlyTransactions(ctx, year)
	if err != nil {
		return a.fail(ctx, err)
	}
	if len(ys.Months) == 0 {
		a.printf("No transactions in %d\n", year)
		return nil
	}
	for _, m := range ys.Months {
		a.printf("== %s %d ==\n", m.Month, ys.Year)
		printTransactions(a.out, m.Transactions)
	}
	return nil
}
