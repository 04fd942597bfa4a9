package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

func printTransactions(w io.Writer, list []models.Transaction) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No transactions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tBALANCE\tCATEGORY")
	for _, t := range list {
		category := ""
		if t.Category != nil {
			category = *t.Category
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.Timestamp.Local().Format("2006-01-02 15:04"),
			t.Type,
			money(t.Type.Signed(t.Amount)),
			money(t.NewBalance),
			category,
		)
	}
	_ = tw.Flush()
}

func printCards(w io.Writer, cards []models.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No cards")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tBRAND\tTYPE\tHOLDER\tEXPIRES")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, cryptox.MaskCardNumber(c.CardNumber), c.Brand, c.CardType, c.CardholderName, c.ExpiryDate)
	}
	_ = tw.Flush()
}
