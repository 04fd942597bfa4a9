// Package remote implements services.Ledger against a callable server. The
// access token and the signed-in user are kept in the local secure store,
// so a session survives restarts the same way a local one does.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/services"
)

// Secure store keys. Both names are sensitive, so values are encrypted.
const (
	AccessTokenKey = "accessToken"
	SessionKey     = "currentSession"
)

type Client struct {
	transport callable.Transport
	store     services.SessionStore
	bus       *services.AuthBus
	logger    logging.Logger
}

var _ services.Ledger = (*Client)(nil)

func New(t callable.Transport, store services.SessionStore, l logging.Logger) *Client {
	if l == nil {
		l = logging.Nop()
	}
	return &Client{
		transport: t,
		store:     store,
		bus:       services.NewAuthBus(),
		logger:    l.With("module", "remote"),
	}
}

func (c *Client) token(ctx context.Context) string {
	tok, ok, err := c.store.GetItem(ctx, AccessTokenKey)
	if err != nil {
		c.logger.Warn(ctx, "access token unreadable", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return tok
}

// call runs a public procedure and unwraps the envelope.
func (c *Client) call(ctx context.Context, procedure string, data any) (callable.Envelope, error) {
	env, err := c.transport.Call(ctx, procedure, data, "")
	if err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return env, nil
}

// callAuthed runs a procedure with the stored token. A rejected token ends
// the local session.
func (c *Client) callAuthed(ctx context.Context, procedure string, data any) (callable.Envelope, error) {
	token := c.token(ctx)
	if token == "" {
		return nil, common.ErrUnauthenticated
	}

	env, err := c.transport.Call(ctx, procedure, data, token)
	if err == nil {
		err = env.Err()
	}
	if errors.Is(err, common.ErrUnauthenticated) || errors.Is(err, common.ErrTokenExpired) {
		c.logger.Info(ctx, "server rejected session", "procedure", procedure)
		if clearErr := c.clearSession(ctx); clearErr != nil {
			c.logger.Warn(ctx, "failed to clear session", "error", clearErr)
		}
		c.bus.Publish(nil)
	}
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) saveSession(ctx context.Context, res *callable.AuthResult) error {
	if res.User == nil || res.AccessToken == "" {
		return errors.New("server returned no session")
	}
	b, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := c.store.SetItem(ctx, AccessTokenKey, res.AccessToken); err != nil {
		return err
	}
	return c.store.SetItem(ctx, SessionKey, string(b))
}

func (c *Client) clearSession(ctx context.Context) error {
	return errors.Join(
		c.store.RemoveItem(ctx, AccessTokenKey),
		c.store.RemoveItem(ctx, SessionKey),
	)
}

func (c *Client) startSession(ctx context.Context, env callable.Envelope) (*models.User, error) {
	var res callable.AuthResult
	if err := env.Decode(&res); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if err := c.saveSession(ctx, &res); err != nil {
		return nil, common.Storage("save session", err)
	}
	c.bus.Publish(res.User)
	return res.User, nil
}

func (c *Client) SignUp(ctx context.Context, creds models.Credentials) (*models.User, error) {
	env, err := c.call(ctx, callable.ProcSignUp, creds)
	if err != nil {
		return nil, err
	}
	return c.startSession(ctx, env)
}

func (c *Client) SignIn(ctx context.Context, creds models.Credentials) (*models.User, error) {
	env, err := c.call(ctx, callable.ProcSignIn, creds)
	if err != nil {
		return nil, err
	}
	return c.startSession(ctx, env)
}

// SignOut only forgets the local token; the server keeps no sessions.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.clearSession(ctx); err != nil {
		return common.Storage("clear session", err)
	}
	c.bus.Publish(nil)
	return nil
}

func (c *Client) CurrentUser(ctx context.Context) *models.User {
	raw, ok, err := c.store.GetItem(ctx, SessionKey)
	if err != nil || !ok || raw == "" {
		return nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		c.logger.Warn(ctx, "session malformed")
		return nil
	}
	return &u
}

func (c *Client) OnAuthStateChange(ctx context.Context, fn services.AuthListener) func() {
	unsubscribe := c.bus.Subscribe(fn)
	fn(c.CurrentUser(ctx))
	return unsubscribe
}

// UpdateProfile renames the signed-in user. Other users cannot be renamed
// from a client.
func (c *Client) UpdateProfile(ctx context.Context, p models.ProfileUpdate) (*models.User, error) {
	current := c.CurrentUser(ctx)
	if current == nil {
		return nil, common.ErrUnauthenticated
	}
	if p.UserID != "" && p.UserID != current.ID {
		return nil, fmt.Errorf("%w: only the signed-in user can be updated", common.ErrValidation)
	}
	env, err := c.callAuthed(ctx, callable.ProcUpdateUserProfile, map[string]any{"displayName": p.DisplayName})
	if err != nil {
		return nil, err
	}
	return c.startSession(ctx, env)
}

func (c *Client) CreateAccount(ctx context.Context, p models.CreateAccountParams) (*models.Account, error) {
	env, err := c.callAuthed(ctx, callable.ProcCreateBankAccount, map[string]any{
		"ownerName":  p.OwnerName,
		"ownerEmail": p.OwnerEmail,
	})
	if err != nil {
		return nil, err
	}
	var a models.Account
	if err := env.Field("account", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AccountDetails(ctx context.Context) (*models.Account, error) {
	env, err := c.callAuthed(ctx, callable.ProcGetAccountDetails, nil)
	if err != nil {
		return nil, err
	}
	var a models.Account
	if err := env.Field("account", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateTransaction(ctx context.Context, p models.CreateTransactionParams) (*models.Transaction, error) {
	env, err := c.callAuthed(ctx, callable.ProcPerformTransaction, p)
	if err != nil {
		return nil, err
	}
	var t models.Transaction
	if err := env.Field("transaction", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Transactions returns an empty list when nobody is signed in.
func (c *Client) Transactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error) {
	if c.token(ctx) == "" {
		return []models.Transaction{}, nil
	}
	env, err := c.callAuthed(ctx, callable.ProcGetTransactions, map[string]any{"type": q.Type})
	if err != nil {
		return nil, err
	}
	list := []models.Transaction{}
	if err := env.Field("transactions", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// YearlyTransactions returns an empty statement when nobody is signed in.
func (c *Client) YearlyTransactions(ctx context.Context, year int) (*models.YearlyStatement, error) {
	if c.token(ctx) == "" {
		return &models.YearlyStatement{Year: year, Months: []models.MonthlyTransactions{}}, nil
	}
	env, err := c.callAuthed(ctx, callable.ProcGetYearlyTransactions, map[string]any{"year": year})
	if err != nil {
		return nil, err
	}
	var y models.YearlyStatement
	if err := env.Decode(&y); err != nil {
		return nil, err
	}
	return &y, nil
}

func (c *Client) AccountStatement(ctx context.Context, p models.StatementParams) (*models.Statement, error) {
	env, err := c.callAuthed(ctx, callable.ProcGetAccountStatement, p)
	if err != nil {
		return nil, err
	}
	var st models.Statement
	if err := env.Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) CreateCard(ctx context.Context, p models.CreateCardParams) (*models.Card, error) {
	env, err := c.callAuthed(ctx, callable.ProcCreatePaymentCard, map[string]any{
		"cardType":       p.CardType,
		"cardholderName": p.CardholderName,
	})
	if err != nil {
		return nil, err
	}
	var card models.Card
	if err := env.Field("card", &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ListCards lists the cards of the signed-in user's account; the server
// ignores accountNumber.
func (c *Client) ListCards(ctx context.Context, _ string) ([]models.Card, error) {
	env, err := c.callAuthed(ctx, callable.ProcListPaymentCards, nil)
	if err != nil {
		return nil, err
	}
	cards := []models.Card{}
	if err := env.Field("cards", &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *Client) GetCard(ctx context.Context, id string) (*models.Card, error) {
	env, err := c.callAuthed(ctx, callable.ProcGetPaymentCard, map[string]any{"cardId": id})
	if err != nil {
		return nil, err
	}
	var card models.Card
	if err := env.Field("card", &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	_, err := c.callAuthed(ctx, callable.ProcDeletePaymentCard, map[string]any{"cardId": id})
	return err
}

func (c *Client) CardTransactions(ctx context.Context, cardID string, limit int) ([]models.Transaction, error) {
	env, err := c.callAuthed(ctx, callable.ProcGetPaymentCardTransacts, map[string]any{"cardId": cardID, "limit": limit})
	if err != nil {
		return nil, err
	}
	list := []models.Transaction{}
	if err := env.Field("transactions", &list); err != nil {
		return nil, err
	}
	return list, nil
}
