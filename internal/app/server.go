package app

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/pocketbank/internal/auth"
	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/callable/grpcx"
	"github.com/dmitrijs2005/pocketbank/internal/callable/httpx"
	"github.com/dmitrijs2005/pocketbank/internal/config"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"golang.org/x/time/rate"
)

// Server runs the callable procedures over gRPC and HTTP.
type Server struct {
	config   *config.Config
	logger   logging.Logger
	local    *Local
	registry *callable.Registry
	limiter  *rate.Limiter
}

func NewServer(cfg *config.Config, logger logging.Logger) (*Server, error) {
	local, err := OpenLocal(cfg, logger, false)
	if err != nil {
		return nil, err
	}

	secret := []byte(cfg.SecretKey)
	issue := func(u *models.User) (string, error) {
		return auth.GenerateToken(u, secret, cfg.AccessTokenValidity)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Server{
		config:   cfg,
		logger:   logger.With("module", "server"),
		local:    local,
		registry: callable.NewLedgerRegistry(local.Ledger, issue, callable.NewRegistry(logger)),
		limiter:  limiter,
	}, nil
}

func (s *Server) verify(token string) (*models.User, error) {
	claims, err := auth.ParseToken(token, []byte(s.config.SecretKey))
	if err != nil {
		return nil, err
	}
	return claims.User(), nil
}

// Run serves until ctx is done or a signal arrives. A listener that fails
// stops the other one too.
func (s *Server) Run(ctx context.Context) {
	ctx, cancelFunc := withSignals(ctx)
	defer cancelFunc()
	defer func() {
		if err := s.local.Close(); err != nil {
			s.logger.Error(ctx, "close store", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting app...")

	var wg sync.WaitGroup

	if s.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gs := grpcx.NewServer(s.config.GRPCAddr, s.registry, s.verify, s.limiter, s.logger)
			if err := gs.Run(ctx); err != nil {
				s.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	if s.config.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hs := httpx.NewServer(s.config.HTTPAddr, s.registry, s.verify, s.limiter, s.logger)
			if err := hs.Run(ctx); err != nil {
				s.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Wait()
}
