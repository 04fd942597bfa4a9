package app

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/callable/remote"
	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/config"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	return cfg
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)

	cfg.LogBackend = "nope"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}

func TestOpenLocal_PersistsSession(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	l, err := OpenLocal(cfg, logging.Nop(), true)
	require.NoError(t, err)
	u, err := l.Ledger.SignUp(ctx, models.Credentials{Email: "ann@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = OpenLocal(cfg, logging.Nop(), true)
	require.NoError(t, err)
	defer l.Close()

	current := l.Ledger.CurrentUser(ctx)
	require.NotNil(t, current)
	assert.Equal(t, u.ID, current.ID)
}

func TestOpenLocal_ServerKeepsNoSession(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	l, err := OpenLocal(cfg, logging.Nop(), false)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Ledger.SignUp(ctx, models.Credentials{Email: "ann@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Nil(t, l.Ledger.CurrentUser(ctx))
}

func TestOpenLocal_BadTimeZone(t *testing.T) {
	cfg := testConfig(t)
	cfg.TimeZone = "Mars/Olympus"

	_, err := OpenLocal(cfg, logging.Nop(), true)
	assert.Error(t, err)
}

func TestServer_RegistryIssuesVerifiableTokens(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServer(cfg, logging.Nop())
	require.NoError(t, err)
	defer s.local.Close()

	ctx := context.Background()
	raw, _ := json.Marshal(models.Credentials{Email: "ann@example.com", Password: "s3cret-pass"})
	env := s.registry.Call(ctx, callable.ProcSignUp, raw)
	require.True(t, env.Success(), env)

	var res callable.AuthResult
	require.NoError(t, env.Decode(&res))
	u, err := s.verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)

	_, err = s.verify("not-a-token")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServer(cfg, logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewCLI_PicksLedger(t *testing.T) {
	cfg := testConfig(t)

	c, err := NewCLI(cfg, strings.NewReader(""), io.Discard, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &services.Local{}, c.ledger)
	require.NoError(t, c.Close())

	for _, transport := range []string{config.TransportGRPC, config.TransportHTTP} {
		cfg := testConfig(t)
		cfg.RemoteEndpoint = "127.0.0.1:1"
		cfg.RemoteTransport = transport

		c, err := NewCLI(cfg, strings.NewReader(""), io.Discard, logging.Nop())
		require.NoError(t, err, transport)
		assert.IsType(t, &remote.Client{}, c.ledger)
		require.NoError(t, c.Close())
	}

	cfg = testConfig(t)
	cfg.RemoteEndpoint = "127.0.0.1:1"
	cfg.RemoteTransport = "carrier-pigeon"
	_, err = NewCLI(cfg, strings.NewReader(""), io.Discard, logging.Nop())
	assert.Error(t, err)
}

func TestCLI_RunExitsOnEOF(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewCLI(cfg, strings.NewReader("help\nexit\n"), io.Discard, logging.Nop())
	require.NoError(t, err)

	c.Run(context.Background())
}

func TestRemoteKeysAreSensitive(t *testing.T) {
	cfg := testConfig(t)
	l, err := OpenLocal(cfg, logging.Nop(), true)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Secure.SetItem(ctx, remote.AccessTokenKey, "tok"))

	raw, err := l.Store.KV().Get(ctx, remote.AccessTokenKey)
	require.NoError(t, err)
	assert.NotEqual(t, "tok", string(raw))
}
