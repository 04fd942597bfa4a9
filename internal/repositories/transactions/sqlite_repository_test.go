package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/store/storetest"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *SQLiteRepository {
	t.Helper()
	db := storetest.NewDB(t)
	storetest.InsertUser(t, db, "u1", "ann@example.com")
	storetest.InsertUser(t, db, "u2", "bob@example.com")
	storetest.InsertAccount(t, db, "u1", "11111111", 0)
	storetest.InsertAccount(t, db, "u2", "22222222", 0)
	return NewSQLiteRepository(db)
}

func newTx(id, account string, typ models.TransactionType, amount, balance string, ts time.Time) *models.Transaction {
	return &models.Transaction{
		ID:            id,
		AccountNumber: account,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
		Timestamp:     ts,
		NewBalance:    decimal.RequireFromString(balance),
		CreatedAt:     ts,
	}
}

func ids(list []models.Transaction) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func TestCreateAndList_RoundTrip(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	ts := time.UnixMilli(1_700_000_000_500).UTC()
	food := "food"
	tx := newTx("t1", "11111111", models.Deposit, "50.5", "50.5", ts)
	tx.Category = &food
	require.NoError(t, r.Create(ctx, tx))

	list, err := r.List(ctx, Filter{AccountNumber: "11111111"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, "t1", got.ID)
	assert.True(t, got.Amount.Equal(tx.Amount))
	assert.True(t, got.NewBalance.Equal(tx.NewBalance))
	assert.Equal(t, ts, got.Timestamp)
	require.NotNil(t, got.Category)
	assert.Equal(t, "food", *got.Category)
}

func TestList_NewestFirstWithInsertionTieBreak(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	t0 := time.UnixMilli(1_700_000_000_000).UTC()
	require.NoError(t, r.Create(ctx, newTx("a", "11111111", models.Deposit, "1", "1", t0)))
	require.NoError(t, r.Create(ctx, newTx("b", "11111111", models.Deposit, "1", "2", t0.Add(time.Minute))))
	require.NoError(t, r.Create(ctx, newTx("c", "11111111", models.Deposit, "1", "3", t0.Add(time.Minute))))

	list, err := r.List(ctx, Filter{AccountNumber: "11111111"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(list))
	assert.Nil(t, list[0].Category)
}

func TestList_Filters(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Create(ctx, newTx("d1", "11111111", models.Deposit, "100", "100", jan)))
	require.NoError(t, r.Create(ctx, newTx("w1", "11111111", models.Withdrawal, "10", "90", feb)))
	require.NoError(t, r.Create(ctx, newTx("x1", "22222222", models.Deposit, "5", "5", feb)))

	list, err := r.List(ctx, Filter{AccountNumber: "11111111", Type: models.Withdrawal})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids(list))

	list, err = r.List(ctx, Filter{AccountNumber: "11111111", From: jan, To: feb})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids(list), "To is exclusive")

	list, err = r.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestList_LimitOffset(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	t0 := time.UnixMilli(1_700_000_000_000).UTC()
	for i, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, r.Create(ctx, newTx(id, "11111111", models.Deposit, "1", "1", t0.Add(time.Duration(i)*time.Second))))
	}

	list, err := r.List(ctx, Filter{AccountNumber: "11111111", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3"}, ids(list))
}

func TestCreate_SchemaRejectsBadRows(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	assert.Error(t, r.Create(ctx, newTx("z", "11111111", models.Deposit, "0", "0", ts)), "amount must be positive")
	assert.Error(t, r.Create(ctx, newTx("n", "11111111", models.Withdrawal, "5", "-5", ts)), "balance must not go negative")
	assert.Error(t, r.Create(ctx, newTx("g", "99999999", models.Deposit, "5", "5", ts)), "account must exist")
}

func TestList_QueryErrorWrapped(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("FROM transactions WHERE account_number = \\? ORDER BY timestamp DESC, rowid DESC LIMIT \\? OFFSET \\?").
		WithArgs("11111111", 10, 0).
		WillReturnError(errors.New("disk I/O error"))

	r := NewSQLiteRepository(sqlx.NewDb(mockDB, "sqlite"))
	_, err = r.List(context.Background(), Filter{AccountNumber: "11111111", Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list transactions")
	assert.NoError(t, mock.ExpectationsWereMet())
}
