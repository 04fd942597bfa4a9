// Package cli implements the interactive pocketbank shell: a small REPL
// over a services.Ledger, which may be the local ledger or a remote one.
//
// Commands that need input prompt for it line by line; passwords are read
// from the terminal without echo. Card numbers are always masked and CVVs
// are never printed.
package cli
