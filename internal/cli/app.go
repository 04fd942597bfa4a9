package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/services"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type App struct {
	ledger services.Ledger
	reader *bufio.Reader
	out    io.Writer
	logger logging.Logger
	mode   string

	mu   sync.Mutex
	user *models.User
}

// NewApp reads commands from in and writes to out. mode is shown in the
// prompt ("local" or the remote endpoint).
func NewApp(ledger services.Ledger, in io.Reader, out io.Writer, mode string, l logging.Logger) *App {
	if l == nil {
		l = logging.Nop()
	}
	return &App{
		ledger: ledger,
		reader: bufio.NewReader(in),
		out:    out,
		logger: l.With("module", "cli"),
		mode:   mode,
	}
}

// Run starts the REPL and returns on EOF, "exit" or ctx cancellation.
func (a *App) Run(ctx context.Context) {
	unsubscribe := a.ledger.OnAuthStateChange(ctx, func(u *models.User) {
		a.mu.Lock()
		a.user = u
		a.mu.Unlock()
	})
	defer unsubscribe()

	a.println("Welcome to PocketBank (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user != nil
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.mode
	if a.user != nil {
		s = a.user.Email + " " + s
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// fail prints the user-facing message of err and returns it.
func (a *App) fail(ctx context.Context, err error) error {
	if common.Code(err) == common.CodeInternal {
		a.logger.Error(ctx, "command failed", "error", err)
	}
	a.println("Error:", common.Message(err))
	return err
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}
