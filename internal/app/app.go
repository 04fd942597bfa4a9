// Package app wires configuration, storage and transports into the two
// programs: the interactive CLI and the callable server.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/pocketbank/internal/config"
	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/dmitrijs2005/pocketbank/internal/filex"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/dmitrijs2005/pocketbank/internal/securestore"
	"github.com/dmitrijs2005/pocketbank/internal/services"
	"github.com/dmitrijs2005/pocketbank/internal/store"
	"github.com/dmitrijs2005/pocketbank/internal/throttle"
)

// NewLogger builds the redacting logger selected by cfg.
func NewLogger(cfg *config.Config) (logging.Logger, error) {
	return logging.New(logging.Options{
		Backend: cfg.LogBackend,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// Local is an opened on-device ledger with the stores behind it.
type Local struct {
	Store  *store.Store
	Secure *securestore.SecureStore
	Ledger *services.Local
	closer []func() error
}

// OpenLocal opens the embedded database under cfg.DataDir and builds the
// ledger on it. Throttle state goes to Redis when cfg.RedisAddr is set.
// Servers pass persistSession=false: their callers come with tokens.
func OpenLocal(cfg *config.Config, logger logging.Logger, persistSession bool) (*Local, error) {
	path, err := filex.DatabasePath(cfg.DataDir, cfg.DatabaseFile)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	repos := repomanager.NewSQLiteRepositoryManager()
	st := store.New(path, repos, store.WithMaxOpenConns(cfg.MaxOpenConns), store.WithLogger(logger))
	kv := st.KV()
	secure := securestore.New(kv, cryptox.NewFieldCipher(kv), logger)

	l := &Local{Store: st, Secure: secure, closer: []func() error{st.Close}}

	var ts throttle.Store = throttle.NewKVStore(kv)
	if cfg.RedisAddr != "" {
		client, err := throttle.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		l.closer = append(l.closer, client.Close)
		ts = throttle.NewRedisStore(client)
	}

	var sessions services.SessionStore
	if persistSession {
		sessions = secure
	}

	l.Ledger = services.NewLocal(services.Deps{
		Store:    st,
		Repos:    repos,
		Sessions: sessions,
		Throttle: throttle.New(ts, throttle.WithLogger(logger)),
		Logger:   logger,
		Location: loc,
	})
	return l, nil
}

func (l *Local) Close() error {
	var first error
	for i := len(l.closer) - 1; i >= 0; i-- {
		if err := l.closer[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// withSignals returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}
