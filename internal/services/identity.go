package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// accountNumberAttempts bounds retries on account number collisions.
const accountNumberAttempts = 10

// IdentityService signs users up and in, keeps the session and provisions
// the bank account.
type IdentityService struct {
	store    DBProvider
	repos    repomanager.RepositoryManager
	sessions *sessions
	throttle Throttle
	bus      *AuthBus
	validate *validator.Validate
	logger   logging.Logger
	now      func() time.Time
}

func newIdentityService(d Deps, v *validator.Validate) *IdentityService {
	l := d.Logger.With("module", "identity")
	return &IdentityService{
		store:    d.Store,
		repos:    d.Repos,
		sessions: &sessions{store: d.Sessions, logger: l},
		throttle: d.Throttle,
		bus:      NewAuthBus(),
		validate: v,
		logger:   l,
		now:      d.Clock,
	}
}

// Register creates a user without touching the session.
func (s *IdentityService) Register(ctx context.Context, creds models.Credentials) (*models.User, error) {
	creds.Email = sanitizeEmail(creds.Email)
	if err := s.validate.Struct(creds); err != nil {
		return nil, invalid(err)
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	users := s.repos.Users(db)

	_, err = users.GetByEmail(ctx, creds.Email)
	if err == nil {
		return nil, common.ErrDuplicateEmail
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Storage("look up user", err)
	}

	hash, err := cryptox.HashPassword(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, common.Storage("create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks credentials against the throttle and the stored hash
// without touching the session. An unknown email and a wrong password are
// indistinguishable to the caller.
func (s *IdentityService) Authenticate(ctx context.Context, creds models.Credentials) (*models.User, error) {
	email := sanitizeEmail(creds.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: Email must be a valid address", common.ErrValidation)
	}
	if creds.Password == "" {
		return nil, fmt.Errorf("%w: Password is required", common.ErrValidation)
	}

	if s.throttle != nil {
		if st := s.throttle.Check(ctx, email); !st.Allowed {
			s.logger.Warn(ctx, "sign-in throttled", "email", logging.MaskEmail(email))
			return nil, &common.ThrottledError{BlockedUntil: st.BlockedUntil}
		}
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	u, err := s.repos.Users(db).GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.recordFailure(ctx, email)
		return nil, common.ErrInvalidCredentials
	case err != nil:
		return nil, common.Storage("look up user", err)
	}

	if !cryptox.VerifyPassword(creds.Password, u.PasswordHash) {
		s.recordFailure(ctx, email)
		return nil, common.ErrInvalidCredentials
	}

	if s.throttle != nil {
		s.throttle.Reset(ctx, email)
	}
	return u, nil
}

func (s *IdentityService) recordFailure(ctx context.Context, email string) {
	s.logger.Info(ctx, "sign-in failed", "email", logging.MaskEmail(email))
	if s.throttle != nil {
		s.throttle.RecordAttempt(ctx, email)
	}
}

// SignUp registers the user and makes them the session user.
func (s *IdentityService) SignUp(ctx context.Context, creds models.Credentials) (*models.User, error) {
	u, err := s.Register(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.startSession(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *IdentityService) SignIn(ctx context.Context, creds models.Credentials) (*models.User, error) {
	u, err := s.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.startSession(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "signed in", "user_id", u.ID)
	return u, nil
}

func (s *IdentityService) startSession(ctx context.Context, u *models.User) error {
	if err := s.sessions.save(ctx, u); err != nil {
		return common.Storage("save session", err)
	}
	s.bus.Publish(u)
	return nil
}

func (s *IdentityService) SignOut(ctx context.Context) error {
	if err := s.sessions.clear(ctx); err != nil {
		return common.Storage("clear session", err)
	}
	s.bus.Publish(nil)
	return nil
}

func (s *IdentityService) CurrentUser(ctx context.Context) *models.User {
	return s.sessions.user(ctx)
}

func (s *IdentityService) OnAuthStateChange(ctx context.Context, fn AuthListener) func() {
	unsubscribe := s.bus.Subscribe(fn)
	fn(s.CurrentUser(ctx))
	return unsubscribe
}

// UpdateProfile renames a user. When that user is the session user, the
// session follows and listeners are notified.
func (s *IdentityService) UpdateProfile(ctx context.Context, p models.ProfileUpdate) (*models.User, error) {
	p.DisplayName = sanitizeName(p.DisplayName)
	if err := s.validate.Struct(p); err != nil {
		return nil, invalid(err)
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	users := s.repos.Users(db)

	if err := users.UpdateDisplayName(ctx, p.UserID, p.DisplayName); err != nil {
		return nil, common.Storage("update profile", err)
	}
	u, err := users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, common.Storage("reload user", err)
	}

	if current := s.sessions.load(ctx); current != nil && current.ID == u.ID {
		if err := s.startSession(ctx, u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// CreateAccount opens the single bank account of a user with a fresh
// 8-digit number and a zero balance.
func (s *IdentityService) CreateAccount(ctx context.Context, p models.CreateAccountParams) (*models.Account, error) {
	p.OwnerEmail = sanitizeEmail(p.OwnerEmail)
	p.OwnerName = sanitizeName(p.OwnerName)
	if err := s.validate.Struct(p); err != nil {
		return nil, invalid(err)
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = dbx.WithTx(context.WithoutCancel(ctx), db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repos.Users(tx).GetByID(ctx, p.UserID); err != nil {
			return err
		}

		accounts := s.repos.Accounts(tx)
		_, err := accounts.GetByUserID(ctx, p.UserID)
		if err == nil {
			return common.ErrDuplicateAccount
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		for attempt := 0; attempt < accountNumberAttempts; attempt++ {
			n, err := common.RandomInt(10_000_000, 99_999_999)
			if err != nil {
				return fmt.Errorf("generate account number: %w", err)
			}
			a := &models.Account{
				ID:            uuid.NewString(),
				UserID:        p.UserID,
				AccountNumber: strconv.FormatInt(n, 10),
				Agency:        common.AgencyCode,
				OwnerName:     p.OwnerName,
				OwnerEmail:    p.OwnerEmail,
				Balance:       decimal.Zero,
				CreatedAt:     s.now().UTC().Truncate(time.Millisecond),
			}
			err = accounts.Create(ctx, a)
			if dbx.IsUniqueViolation(err) {
				s.logger.Debug(ctx, "account number taken, retrying", "attempt", attempt+1)
				continue
			}
			if err != nil {
				return err
			}
			account = a
			return nil
		}
		return errors.New("no free account number")
	})
	if err != nil {
		return nil, common.Storage("create account", err)
	}

	s.logger.Info(ctx, "account created", "user_id", p.UserID)
	return account, nil
}

// AccountDetails returns the account of the session user.
func (s *IdentityService) AccountDetails(ctx context.Context) (*models.Account, error) {
	u := s.sessions.user(ctx)
	if u == nil {
		return nil, common.ErrUnauthenticated
	}
	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.repos.Accounts(db).GetByUserID(ctx, u.ID)
	if err != nil {
		return nil, common.Storage("get account", err)
	}
	return a, nil
}
