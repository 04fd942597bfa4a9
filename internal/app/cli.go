package app

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/pocketbank/internal/callable"
	"github.com/dmitrijs2005/pocketbank/internal/callable/grpcx"
	"github.com/dmitrijs2005/pocketbank/internal/callable/httpx"
	"github.com/dmitrijs2005/pocketbank/internal/callable/remote"
	"github.com/dmitrijs2005/pocketbank/internal/cli"
	"github.com/dmitrijs2005/pocketbank/internal/config"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/services"
)

// CLI is the interactive shell over a local or remote ledger.
type CLI struct {
	app    *cli.App
	ledger services.Ledger
	local  *Local
	closer io.Closer
}

// NewCLI opens the local store and picks the ledger: the local one, or a
// remote one when cfg.RemoteEndpoint is set. The local store then only
// keeps the encrypted token and session.
func NewCLI(cfg *config.Config, in io.Reader, out io.Writer, logger logging.Logger) (*CLI, error) {
	local, err := OpenLocal(cfg, logger, true)
	if err != nil {
		return nil, err
	}

	c := &CLI{local: local}
	var ledger services.Ledger = local.Ledger
	mode := "local"

	if cfg.Remote() {
		t, closer, err := newTransport(cfg)
		if err != nil {
			_ = local.Close()
			return nil, err
		}
		c.closer = closer
		ledger = remote.New(t, local.Secure, logger)
		mode = cfg.RemoteEndpoint
	}

	c.ledger = ledger
	c.app = cli.NewApp(ledger, in, out, mode, logger)
	return c, nil
}

func newTransport(cfg *config.Config) (callable.Transport, io.Closer, error) {
	switch cfg.RemoteTransport {
	case "", config.TransportGRPC:
		c, err := grpcx.Dial(cfg.RemoteEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.TransportHTTP:
		return httpx.NewClient(cfg.RemoteEndpoint, nil), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote transport %q", cfg.RemoteTransport)
	}
}

// Run blocks until the user exits or input ends. Interrupts keep their
// default behaviour so a prompt waiting for input can still be left.
func (c *CLI) Run(ctx context.Context) {
	defer c.Close()

	c.app.Run(ctx)
}

func (c *CLI) Close() error {
	if c.closer != nil {
		_ = c.closer.Close()
	}
	return c.local.Close()
}
