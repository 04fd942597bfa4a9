package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/dmitrijs2005/pocketbank/internal/securestore"
	"github.com/dmitrijs2005/pocketbank/internal/store"
	"github.com/dmitrijs2005/pocketbank/internal/throttle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store   *store.Store
	kv      *store.KV
	secure  *securestore.SecureStore
	limiter *throttle.Limiter
	clock   *testClock
	ledger  *Local
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.New(filepath.Join(t.TempDir(), "ledger.db"), repomanager.NewSQLiteRepositoryManager())
	t.Cleanup(func() { _ = st.Close() })

	kv := st.KV()
	clock := &testClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	secure := securestore.New(kv, cryptox.NewFieldCipher(kv), logging.Nop())
	limiter := throttle.New(throttle.NewKVStore(kv), throttle.WithClock(clock.Now))

	ledger := NewLocal(Deps{
		Store:    st,
		Repos:    repomanager.NewSQLiteRepositoryManager(),
		Sessions: secure,
		Throttle: limiter,
		Clock:    clock.Now,
	})

	return &fixture{store: st, kv: kv, secure: secure, limiter: limiter, clock: clock, ledger: ledger}
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	db, err := f.store.DB(context.Background())
	require.NoError(t, err)
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

// signUpWithAccount signs a user up and opens their account.
func (f *fixture) signUpWithAccount(t *testing.T, email string) (*models.User, *models.Account) {
	t.Helper()
	ctx := context.Background()
	u, err := f.ledger.SignUp(ctx, models.Credentials{Email: email, Password: "s3cret-pass"})
	require.NoError(t, err)
	a, err := f.ledger.CreateAccount(ctx, models.CreateAccountParams{
		UserID:     u.ID,
		OwnerEmail: email,
		OwnerName:  "Ann Smith",
	})
	require.NoError(t, err)
	return u, a
}

func (f *fixture) balance(t *testing.T, accountNumber string) decimal.Decimal {
	t.Helper()
	db, err := f.store.DB(context.Background())
	require.NoError(t, err)
	a, err := repomanager.NewSQLiteRepositoryManager().Accounts(db).GetByNumber(context.Background(), accountNumber)
	require.NoError(t, err)
	return a.Balance
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
