package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/store/storetest"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*sqlx.DB, *SQLiteRepository) {
	t.Helper()
	db := storetest.NewDB(t)
	storetest.InsertUser(t, db, "u1", "ann@example.com")
	storetest.InsertUser(t, db, "u2", "bob@example.com")
	return db, NewSQLiteRepository(db)
}

func newAccount(id, userID, number string) *models.Account {
	return &models.Account{
		ID:            id,
		UserID:        userID,
		AccountNumber: number,
		Agency:        common.AgencyCode,
		OwnerName:     "Ann",
		OwnerEmail:    "ann@example.com",
		Balance:       decimal.Zero,
		CreatedAt:     time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestCreateAndGet(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()

	a := newAccount("a1", "u1", "12345678")
	require.NoError(t, r.Create(ctx, a))

	got, err := r.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "12345678", got.AccountNumber)
	assert.Equal(t, "0001", got.Agency)
	assert.True(t, got.Balance.IsZero())
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	got, err = r.GetByNumber(ctx, "12345678")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
}

func TestCreate_NumberCollisionIsUniqueViolation(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newAccount("a1", "u1", "12345678")))
	err := r.Create(ctx, newAccount("a2", "u2", "12345678"))
	require.Error(t, err)
	assert.True(t, dbx.IsUniqueViolation(err))
}

func TestGet_NotFound(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()

	_, err := r.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.GetByNumber(ctx, "00000000")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateBalance(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newAccount("a1", "u1", "12345678")))
	require.NoError(t, r.UpdateBalance(ctx, "12345678", decimal.RequireFromString("150.25")))

	got, err := r.GetByNumber(ctx, "12345678")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("150.25").Equal(got.Balance), got.Balance.String())

	assert.ErrorIs(t, r.UpdateBalance(ctx, "00000000", decimal.Zero), common.ErrNotFound)
}

func TestUpdateBalance_NegativeRejectedBySchema(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, newAccount("a1", "u1", "12345678")))
	err := r.UpdateBalance(ctx, "12345678", decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.True(t, dbx.IsCheckViolation(err))
}

func TestCreate_UnknownUserRejected(t *testing.T) {
	_, r := setup(t)
	err := r.Create(context.Background(), newAccount("a1", "ghost", "12345678"))
	assert.Error(t, err)
}

func TestUpdateBalance_ExecErrorWrapped(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("UPDATE accounts SET balance").
		WillReturnError(errors.New("database is locked"))

	r := NewSQLiteRepository(sqlx.NewDb(mockDB, "sqlite"))
	err = r.UpdateBalance(context.Background(), "12345678", decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update balance of 12345678")
	assert.NoError(t, mock.ExpectationsWereMet())
}
