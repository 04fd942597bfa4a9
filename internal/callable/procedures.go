package callable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/services"
)

// Procedure names.
const (
	ProcSignUp                  = "signUp"
	ProcSignIn                  = "signIn"
	ProcUpdateUserProfile       = "updateUserProfile"
	ProcCreateBankAccount       = "createBankAccount"
	ProcGetAccountDetails       = "getAccountDetails"
	ProcPerformTransaction      = "performTransaction"
	ProcGetTransactions         = "getTransactions"
	ProcGetYearlyTransactions   = "getYearlyTransactions"
	ProcGetAccountStatement     = "getAccountStatement"
	ProcCreatePaymentCard       = "createPaymentCard"
	ProcListPaymentCards        = "listPaymentCards"
	ProcGetPaymentCard          = "getPaymentCard"
	ProcDeletePaymentCard       = "deletePaymentCard"
	ProcGetPaymentCardTransacts = "getPaymentCardTransactions"
)

// Backend is what the server exposes: credential checks that leave no
// session behind, plus the ledgers reading the caller from the context.
// *services.Local satisfies it.
type Backend interface {
	Register(ctx context.Context, creds models.Credentials) (*models.User, error)
	Authenticate(ctx context.Context, creds models.Credentials) (*models.User, error)
	services.Ledger
}

// TokenIssuer mints an access token for a signed-in user.
type TokenIssuer func(u *models.User) (string, error)

// AuthResult is returned by signUp, signIn and updateUserProfile.
type AuthResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type accountResult struct {
	Account *models.Account `json:"account"`
}

type transactionResult struct {
	Transaction *models.Transaction `json:"transaction"`
}

type transactionsResult struct {
	Transactions []models.Transaction `json:"transactions"`
}

type cardResult struct {
	Card *models.Card `json:"card"`
}

type cardsResult struct {
	Cards []models.Card `json:"cards"`
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
}

type accountRequest struct {
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
}

type yearRequest struct {
	Year int `json:"year"`
}

type cardRequest struct {
	CardType       models.CardType `json:"cardType"`
	CardholderName string          `json:"cardholderName"`
}

type cardIDRequest struct {
	CardID string `json:"cardId"`
	Limit  int    `json:"limit,omitempty"`
}

// NewLedgerRegistry binds every procedure to b. Account numbers sent by
// clients are ignored: a caller only ever reaches the account of the
// user its token was issued for.
func NewLedgerRegistry(b Backend, issue TokenIssuer, r *Registry) *Registry {
	h := &handlers{backend: b, issue: issue}

	r.RegisterPublic(ProcSignUp, h.signUp)
	r.RegisterPublic(ProcSignIn, h.signIn)
	r.Register(ProcUpdateUserProfile, h.updateProfile)
	r.Register(ProcCreateBankAccount, h.createAccount)
	r.Register(ProcGetAccountDetails, h.accountDetails)
	r.Register(ProcPerformTransaction, h.performTransaction)
	r.Register(ProcGetTransactions, h.transactions)
	r.Register(ProcGetYearlyTransactions, h.yearly)
	r.Register(ProcGetAccountStatement, h.statement)
	r.Register(ProcCreatePaymentCard, h.createCard)
	r.Register(ProcListPaymentCards, h.listCards)
	r.Register(ProcGetPaymentCard, h.getCard)
	r.Register(ProcDeletePaymentCard, h.deleteCard)
	r.Register(ProcGetPaymentCardTransacts, h.cardTransactions)
	return r
}

type handlers struct {
	backend Backend
	issue   TokenIssuer
}

func decode(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed request: %v", common.ErrValidation, err)
	}
	return nil
}

func caller(ctx context.Context) (*models.User, error) {
	u, ok := services.UserFromContext(ctx)
	if !ok {
		return nil, common.ErrUnauthenticated
	}
	return u, nil
}

func (h *handlers) authResult(u *models.User) (*AuthResult, error) {
	token, err := h.issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: u, AccessToken: token}, nil
}

func (h *handlers) signUp(ctx context.Context, data json.RawMessage) (any, error) {
	var creds models.Credentials
	if err := decode(data, &creds); err != nil {
		return nil, err
	}
	u, err := h.backend.Register(ctx, creds)
	if err != nil {
		return nil, err
	}
	return h.authResult(u)
}

func (h *handlers) signIn(ctx context.Context, data json.RawMessage) (any, error) {
	var creds models.Credentials
	if err := decode(data, &creds); err != nil {
		return nil, err
	}
	u, err := h.backend.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	return h.authResult(u)
}

func (h *handlers) updateProfile(ctx context.Context, data json.RawMessage) (any, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var req profileRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	updated, err := h.backend.UpdateProfile(ctx, models.ProfileUpdate{UserID: u.ID, DisplayName: req.DisplayName})
	if err != nil {
		return nil, err
	}
	// The old token still names the old display name.
	return h.authResult(updated)
}

func (h *handlers) createAccount(ctx context.Context, data json.RawMessage) (any, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var req accountRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.OwnerEmail) == "" {
		req.OwnerEmail = u.Email
	}
	a, err := h.backend.CreateAccount(ctx, models.CreateAccountParams{
		UserID:     u.ID,
		OwnerName:  req.OwnerName,
		OwnerEmail: req.OwnerEmail,
	})
	if err != nil {
		return nil, err
	}
	return accountResult{Account: a}, nil
}

func (h *handlers) accountDetails(ctx context.Context, _ json.RawMessage) (any, error) {
	a, err := h.backend.AccountDetails(ctx)
	if err != nil {
		return nil, err
	}
	return accountResult{Account: a}, nil
}

// ownAccount is the account number of the caller.
func (h *handlers) ownAccount(ctx context.Context) (string, error) {
	a, err := h.backend.AccountDetails(ctx)
	if err != nil {
		return "", err
	}
	return a.AccountNumber, nil
}

func (h *handlers) performTransaction(ctx context.Context, data json.RawMessage) (any, error) {
	var p models.CreateTransactionParams
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	number, err := h.ownAccount(ctx)
	if err != nil {
		return nil, err
	}
	p.AccountNumber = number
	t, err := h.backend.CreateTransaction(ctx, p)
	if err != nil {
		return nil, err
	}
	return transactionResult{Transaction: t}, nil
}

func (h *handlers) transactions(ctx context.Context, data json.RawMessage) (any, error) {
	var q models.TransactionQuery
	if err := decode(data, &q); err != nil {
		return nil, err
	}
	q.AccountNumber = ""
	list, err := h.backend.Transactions(ctx, q)
	if err != nil {
		return nil, err
	}
	return transactionsResult{Transactions: list}, nil
}

func (h *handlers) yearly(ctx context.Context, data json.RawMessage) (any, error) {
	var req yearRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	y, err := h.backend.YearlyTransactions(ctx, req.Year)
	if err != nil {
		return nil, err
	}
	return y, nil
}

func (h *handlers) statement(ctx context.Context, data json.RawMessage) (any, error) {
	var p models.StatementParams
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	st, err := h.backend.AccountStatement(ctx, p)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (h *handlers) createCard(ctx context.Context, data json.RawMessage) (any, error) {
	var req cardRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	number, err := h.ownAccount(ctx)
	if err != nil {
		return nil, err
	}
	c, err := h.backend.CreateCard(ctx, models.CreateCardParams{
		CardType:       req.CardType,
		CardholderName: req.CardholderName,
		AccountNumber:  number,
	})
	if err != nil {
		return nil, err
	}
	return cardResult{Card: c}, nil
}

func (h *handlers) listCards(ctx context.Context, _ json.RawMessage) (any, error) {
	number, err := h.ownAccount(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := h.backend.ListCards(ctx, number)
	if err != nil {
		return nil, err
	}
	return cardsResult{Cards: cards}, nil
}

// ownCard loads a card of the caller. Cards of other accounts look missing.
func (h *handlers) ownCard(ctx context.Context, id string) (*models.Card, error) {
	number, err := h.ownAccount(ctx)
	if err != nil {
		return nil, err
	}
	c, err := h.backend.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AccountNumber != number {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (h *handlers) getCard(ctx context.Context, data json.RawMessage) (any, error) {
	var req cardIDRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	c, err := h.ownCard(ctx, req.CardID)
	if err != nil {
		return nil, err
	}
	return cardResult{Card: c}, nil
}

func (h *handlers) deleteCard(ctx context.Context, data json.RawMessage) (any, error) {
	var req cardIDRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if _, err := h.ownCard(ctx, req.CardID); err != nil {
		return nil, err
	}
	if err := h.backend.DeleteCard(ctx, req.CardID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *handlers) cardTransactions(ctx context.Context, data json.RawMessage) (any, error) {
	var req cardIDRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if _, err := h.ownCard(ctx, req.CardID); err != nil {
		return nil, err
	}
	list, err := h.backend.CardTransactions(ctx, req.CardID, req.Limit)
	if err != nil {
		return nil, err
	}
	return transactionsResult{Transactions: list}, nil
}
