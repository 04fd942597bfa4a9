package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error
	OpenAccount(ctx context.Context) error
	Account(ctx context.Context) error
	Deposit(ctx context.Context) error
	Withdraw(ctx context.Context) error
	History(ctx context.Context, args []string) error
	Statement(ctx context.Context, args []string) error
	Yearly(ctx context.Context, args []string) error
	AddCard(ctx context.Context) error
	Cards(ctx context.Context) error
	DeleteCard(ctx context.Context, args []string) error
}

const (
	helpSignedOut = "Available commands: register, login, help, exit"
	helpSignedIn  = "Available commands: whoami, profile, openaccount, account, deposit, withdraw, " +
		"history [deposit|withdrawal], statement [page] [size], yearly [year], addcard, cards, " +
		"deletecard <id>, logout, help, exit"
)

// runREPL reads one command per line and dispatches it to a. It returns on
// EOF, "exit"/"quit" or when ctx is done. Command errors are reported by
// the commands themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("pb %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "openaccount":
			_ = a.OpenAccount(ctx)

		case "account":
			_ = a.Account(ctx)

		case "deposit":
			_ = a.Deposit(ctx)

		case "withdraw":
			_ = a.Withdraw(ctx)

		case "history":
			_ = a.History(ctx, args)

		case "statement":
			_ = a.Statement(ctx, args)

		case "yearly":
			_ = a.Yearly(ctx, args)

		case "addcard":
			_ = a.AddCard(ctx)

		case "cards":
			_ = a.Cards(ctx)

		case "deletecard":
			if len(args) == 0 {
				printlnFn("Usage: deletecard <id>")
				continue
			}
			_ = a.DeleteCard(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
