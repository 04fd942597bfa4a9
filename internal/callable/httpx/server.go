// Package httpx serves a callable.Registry as JSON over HTTP:
//
//	POST /v1/callable/:procedure  {"data": {...}}  ->  {"result": envelope}
//
// Signed-in procedures expect "Authorization: Bearer <accessToken>".
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

// Request is the body of a procedure call.
type Request struct {
	Data json.RawMessage `json:"data"`
}

// Response is the body of every answered call.
type Response struct {
	Result callable.Envelope `json:"result"`
}

type Server struct {
	address  string
	registry *callable.Registry
	verify   callable.TokenVerifier
	limiter  *rate.Limiter
	logger   logging.Logger
}

// NewServer serves reg on address. A nil limiter disables rate limiting.
func NewServer(address string, reg *callable.Registry, verify callable.TokenVerifier, limiter *rate.Limiter, l logging.Logger) *Server {
	if l == nil {
		l = logging.Nop()
	}
	return &Server{
		address:  address,
		registry: reg,
		verify:   verify,
		limiter:  limiter,
		logger:   l.With("module", "http_server"),
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.loggingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1/callable")
	if s.limiter != nil {
		v1.Use(rateLimitMiddleware(s.limiter))
	}
	v1.POST("/:procedure", s.handleCall)
	return r
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (s *Server) handleCall(c *gin.Context) {
	name := c.Param("procedure")

	ctx, err := s.registry.Authorize(c.Request.Context(), name, bearerToken(c), s.verify)
	if err != nil {
		if errors.Is(err, callable.ErrUnknownProcedure) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusUnauthorized, Response{Result: callable.Failure(authError(err))})
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	c.JSON(http.StatusOK, Response{Result: s.registry.Call(ctx, name, req.Data)})
}

// authError keeps the expired case apart and folds everything else into
// ErrUnauthenticated.
func authError(err error) error {
	if errors.Is(err, common.ErrTokenExpired) {
		return common.ErrTokenExpired
	}
	return common.ErrUnauthenticated
}

func rateLimitMiddleware(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": callable.ErrRateLimited.Error()})
			return
		}
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
