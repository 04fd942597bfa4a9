package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferedSlog(level slog.Level) (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newBufferedSlog(slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "opening store", "file", "ledger.db")
	log.Info(ctx, "account created", "currency", "EUR")
	log.Warn(ctx, "login throttled", "failures", 5)
	log.Error(ctx, "statement failed", "page", 2)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=\"opening store\"", "file=ledger.db",
		"level=INFO", "currency=EUR",
		"level=WARN", "failures=5",
		"level=ERROR", "page=2",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	log, buf := newBufferedSlog(slog.LevelWarn)

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_WithAndContextFields(t *testing.T) {
	log, buf := newBufferedSlog(slog.LevelDebug)

	ctx := WithFields(context.Background(), "procedure", "performTransaction")
	ctx = WithFields(ctx, "user", "u-1")
	log.With("module", "callable").Info(ctx, "call", "ok", true)

	out := buf.String()
	for _, want := range []string{"module=callable", "procedure=performTransaction", "user=u-1", "ok=true"} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_NilContext(t *testing.T) {
	log, buf := newBufferedSlog(slog.LevelDebug)

	//nolint:staticcheck // nil context is tolerated
	assert.NotPanics(t, func() { log.Info(nil, "no ctx") })
	assert.Contains(t, buf.String(), "no ctx")
}

func TestWithFields_NoArgsKeepsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithFields(ctx))
	assert.Nil(t, Fields(ctx))
}
