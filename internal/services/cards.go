package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/transactions"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	cardNumberAttempts = 10
	cardValidityYears  = 3

	DefaultCardTransactions = 20
)

// CardService issues and retires payment cards. It needs no session: every
// call names its account or card.
type CardService struct {
	store    DBProvider
	repos    repomanager.RepositoryManager
	validate *validator.Validate
	logger   logging.Logger
	loc      *time.Location
	now      func() time.Time
}

func newCardService(d Deps, v *validator.Validate) *CardService {
	return &CardService{
		store:    d.Store,
		repos:    d.Repos,
		validate: v,
		logger:   d.Logger.With("module", "cards"),
		loc:      d.Location,
		now:      d.Clock,
	}
}

// expiryDate formats the month of t, cardValidityYears later, as MM/YY.
func expiryDate(t time.Time) string {
	return fmt.Sprintf("%02d/%02d", int(t.Month()), (t.Year()+cardValidityYears)%100)
}

func (s *CardService) CreateCard(ctx context.Context, p models.CreateCardParams) (*models.Card, error) {
	p.CardholderName = sanitizeName(p.CardholderName)
	if err := s.validate.Struct(p); err != nil {
		return nil, invalid(err)
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var card *models.Card
	err = dbx.WithTx(context.WithoutCancel(ctx), db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repos.Accounts(tx).GetByNumber(ctx, p.AccountNumber); err != nil {
			return err
		}
		cards := s.repos.Cards(tx)

		for attempt := 0; attempt < cardNumberAttempts; attempt++ {
			digits, err := common.RandomDigits(12)
			if err != nil {
				return fmt.Errorf("generate card number: %w", err)
			}
			cvv, err := common.RandomDigits(3)
			if err != nil {
				return fmt.Errorf("generate cvv: %w", err)
			}
			c := &models.Card{
				ID:             uuid.NewString(),
				AccountNumber:  p.AccountNumber,
				CardNumber:     p.CardType.Prefix() + digits,
				CardType:       p.CardType,
				CardholderName: p.CardholderName,
				CVV:            cvv,
				ExpiryDate:     expiryDate(now.In(s.loc)),
				Brand:          p.CardType.Brand(),
				Status:         models.CardActive,
				CreatedAt:      now.UTC().Truncate(time.Millisecond),
			}
			err = cards.Create(ctx, c)
			if dbx.IsUniqueViolation(err) {
				continue
			}
			if err != nil {
				return err
			}
			card = c
			return nil
		}
		return fmt.Errorf("no free card number after %d attempts", cardNumberAttempts)
	})
	if err != nil {
		return nil, common.Storage("create card", err)
	}

	s.logger.Info(ctx, "card issued", "card_id", card.ID, "brand", card.Brand)
	return card, nil
}

// ListCards returns active cards, newest first. An empty accountNumber
// lists every account.
func (s *CardService) ListCards(ctx context.Context, accountNumber string) ([]models.Card, error) {
	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Cards(db).ListActive(ctx, accountNumber)
	if err != nil {
		return nil, common.Storage("list cards", err)
	}
	return list, nil
}

func (s *CardService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.repos.Cards(db).GetActive(ctx, id)
	if err != nil {
		return nil, common.Storage("get card", err)
	}
	return c, nil
}

// DeleteCard retires the card. Its row stays for history.
func (s *CardService) DeleteCard(ctx context.Context, id string) error {
	db, err := s.store.DB(ctx)
	if err != nil {
		return err
	}
	if err := s.repos.Cards(db).Retire(context.WithoutCancel(ctx), id); err != nil {
		return common.Storage("delete card", err)
	}
	s.logger.Info(ctx, "card retired", "card_id", id)
	return nil
}

// CardTransactions returns the newest transactions of the card's account.
// A zero limit means DefaultCardTransactions.
func (s *CardService) CardTransactions(ctx context.Context, cardID string, limit int) ([]models.Transaction, error) {
	if limit == 0 {
		limit = DefaultCardTransactions
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, common.ErrInvalidPageParams
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.repos.Cards(db).GetActive(ctx, cardID)
	if err != nil {
		return nil, common.Storage("get card", err)
	}
	list, err := s.repos.Transactions(db).List(ctx, transactions.Filter{
		AccountNumber: c.AccountNumber,
		Limit:         limit,
	})
	if err != nil {
		return nil, common.Storage("card transactions", err)
	}
	return list, nil
}
