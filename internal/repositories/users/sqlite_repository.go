package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type userRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Name      string `db:"name"`
	Password  string `db:"password"`
	CreatedAt int64  `db:"created_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.Name,
		PasswordHash: r.Password,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
}

const selectUser = `SELECT id, email, name, password, created_at FROM users`

func (r *SQLiteRepository) Create(ctx context.Context, u *models.User) error {
	row := userRow{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.DisplayName,
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt.UnixMilli(),
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, password, created_at)
		VALUES (:id, :email, :name, :password, :created_at)`, row)
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("insert user %s: %w", u.Email, common.ErrDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, selectUser+" WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "email = ?", email)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *SQLiteRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, displayName, id)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
