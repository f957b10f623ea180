package storage

import (
	"context"
	"database/sql"
	"fmt"

	"socialmedia/internal/models"
)

// AccountRepository persists accounts in the accounts table.
// Lookups that match nothing return an error satisfying errors.Is(err, sql.ErrNoRows).
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts the account and returns it with the generated id.
func (r *AccountRepository) Create(ctx context.Context, acct models.Account) (*models.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password) VALUES (?, ?)`,
		acct.Username, acct.Password,
	)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("account id: %w", err)
	}
	acct.ID = id
	return &acct, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, `SELECT id, username, password FROM accounts WHERE id = ?`, id)
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT id, username, password FROM accounts WHERE username = ?`, username)
}

func (r *AccountRepository) FindByUsernameAndPassword(ctx context.Context, username, password string) (*models.Account, error) {
	return r.findOne(ctx,
		`SELECT id, username, password FROM accounts WHERE username = ? AND password = ?`,
		username, password,
	)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var acct models.Account
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&acct.ID, &acct.Username, &acct.Password)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &acct, nil
}
