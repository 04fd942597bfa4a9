package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddNamedMigrationContext("00002_rehash_legacy_passwords.go", upRehashLegacyPasswords, nil)
}

type legacyPassword struct {
	id       string
	password string
}

// upRehashLegacyPasswords replaces plaintext passwords left by older
// releases with salted digests.
func upRehashLegacyPasswords(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, password FROM users`)
	if err != nil {
		return fmt.Errorf("select users: %w", err)
	}

	var pending []legacyPassword
	for rows.Next() {
		var lp legacyPassword
		if err := rows.Scan(&lp.id, &lp.password); err != nil {
			rows.Close()
			return fmt.Errorf("scan user: %w", err)
		}
		if !cryptox.IsHashed(lp.password) {
			pending = append(pending, lp)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate users: %w", err)
	}
	rows.Close()

	for _, lp := range pending {
		hashed, err := cryptox.HashPassword(lp.password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", lp.id, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hashed, lp.id); err != nil {
			return fmt.Errorf("update user %s: %w", lp.id, err)
		}
	}
	return nil
}
