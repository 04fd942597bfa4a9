package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Deposit    TransactionType = "DEPOSIT"
	Withdrawal TransactionType = "WITHDRAWAL"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Deposit || t == Withdrawal
}

// Signed returns amount with the sign this type applies to a balance.
func (t TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == Withdrawal {
		return amount.Neg()
	}
	return amount
}

// Transaction is an immutable ledger row. NewBalance is the account balance
// right after this transaction was applied.
type Transaction struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	Timestamp     time.Time       `json:"timestamp"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Category      *string         `json:"category,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateTransactionParams is the input of the balance-mutating call.
// Zero Timestamp means now; empty AccountNumber means the session user's account.
type CreateTransactionParams struct {
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type" validate:"required,oneof=DEPOSIT WITHDRAWAL"`
	Timestamp     time.Time       `json:"timestamp,omitempty"`
	AccountNumber string          `json:"accountNumber,omitempty" validate:"omitempty,len=8,numeric"`
	Category      string          `json:"category,omitempty" validate:"max=64"`
}

// TransactionQuery filters a transaction listing.
type TransactionQuery struct {
	AccountNumber string          `json:"accountNumber,omitempty"`
	Type          TransactionType `json:"type,omitempty"`
}

// StatementParams selects one page of an account statement.
// Zero Page and PageSize fall back to 1 and 20.
type StatementParams struct {
	Page     int             `json:"page,omitempty"`
	PageSize int             `json:"pageSize,omitempty"`
	Type     TransactionType `json:"type,omitempty"`
}

// Statement is one page of transactions, newest first.
type Statement struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	HasMore      bool          `json:"hasMore"`
}

// MonthlyTransactions groups one calendar month, newest first.
type MonthlyTransactions struct {
	Month        time.Month    `json:"month"`
	Transactions []Transaction `json:"transactions"`
}

// YearlyStatement holds the non-empty months of a year in calendar order.
type YearlyStatement struct {
	Year   int                   `json:"year"`
	Months []MonthlyTransactions `json:"months"`
}

// Total returns the number of transactions across all months.
func (y *YearlyStatement) Total() int {
	n := 0
	for _, m := range y.Months {
		n += len(m.Transactions)
	}
	return n
}
