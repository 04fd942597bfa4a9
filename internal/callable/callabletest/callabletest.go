// Package callabletest builds a server-side procedure registry over a real
// temp-file ledger for transport tests.
package callabletest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/auth"
	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/dmitrijs2005/pocketbank/internal/services"
	"github.com/dmitrijs2005/pocketbank/internal/store"
	"github.com/dmitrijs2005/pocketbank/internal/throttle"
)

// Secret signs the access tokens of test servers.
var Secret = []byte("test-secret-key-0123456789abcdef")

// Server is a ready registry with the ledger behind it.
type Server struct {
	Registry *callable.Registry
	Ledger   *services.Local
	Verify   callable.TokenVerifier
	Issue    callable.TokenIssuer
}

// NewServer opens a fresh ledger and binds all procedures to it.
func NewServer(t testing.TB) *Server {
	t.Helper()

	repos := repomanager.NewSQLiteRepositoryManager()
	st := store.New(filepath.Join(t.TempDir(), "server.db"), repos)
	t.Cleanup(func() { _ = st.Close() })

	ledger := services.NewLocal(services.Deps{
		Store:    st,
		Repos:    repos,
		Throttle: throttle.New(throttle.NewKVStore(st.KV())),
	})

	issue := func(u *models.User) (string, error) {
		return auth.GenerateToken(u, Secret, time.Hour)
	}
	verify := func(token string) (*models.User, error) {
		claims, err := auth.ParseToken(token, Secret)
		if err != nil {
			return nil, err
		}
		return claims.User(), nil
	}

	reg := callable.NewLedgerRegistry(ledger, issue, callable.NewRegistry(logging.Nop()))
	return &Server{Registry: reg, Ledger: ledger, Verify: verify, Issue: issue}
}
