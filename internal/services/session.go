package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
)

// SessionKey holds the signed-in user. The name is a sensitive key, so the
// secure store encrypts it.
const SessionKey = "session"

// SessionStore is the encrypted key-value store. *securestore.SecureStore
// satisfies it.
type SessionStore interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

type ctxUserKey struct{}

// WithUser attaches an authenticated user to ctx. The ledgers prefer it
// over the persisted session; servers use it per request.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxUserKey{}).(*models.User)
	return u, ok && u != nil
}

type sessions struct {
	store  SessionStore
	logger logging.Logger
}

// load never fails: an unreadable session counts as signed out.
func (s *sessions) load(ctx context.Context) *models.User {
	if s.store == nil {
		return nil
	}
	raw, ok, err := s.store.GetItem(ctx, SessionKey)
	if err != nil {
		s.logger.Warn(ctx, "session unreadable", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn(ctx, "session malformed", "error", err)
		return nil
	}
	if u.ID == "" {
		return nil
	}
	return &u
}

func (s *sessions) save(ctx context.Context, u *models.User) error {
	if s.store == nil {
		return nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.store.SetItem(ctx, SessionKey, string(b))
}

func (s *sessions) clear(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.RemoveItem(ctx, SessionKey)
}

// user resolves the caller: request user first, then the persisted session.
func (s *sessions) user(ctx context.Context) *models.User {
	if u, ok := UserFromContext(ctx); ok {
		return u
	}
	return s.load(ctx)
}
