package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/digkill/artrelay/internal/models"
)

// ErrNotFound is returned by mutations that require an existing row.
var ErrNotFound = errors.New("record not found")

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sql.DB {
	return r.db
}

// Get returns nil without error when the user does not exist.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	const query = `
SELECT id, credits, attributes, created_at, updated_at
FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var u models.User
	var attrs []byte
	if err := row.Scan(&u.ID, &u.Credits, &attrs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &u.Attributes); err != nil {
			return nil, fmt.Errorf("decode user attributes: %w", err)
		}
	}
	return &u, nil
}

// Upsert inserts the user with a zero balance or refreshes the attributes of
// an existing one. created_at is only written on insert.
func (r *UserRepository) Upsert(ctx context.Context, id string, attributes map[string]any) (*models.User, error) {
	var payload []byte
	if len(attributes) > 0 {
		var err error
		payload, err = json.Marshal(attributes)
		if err != nil {
			return nil, fmt.Errorf("encode user attributes: %w", err)
		}
	}

	const query = `
INSERT INTO users (id, credits, attributes, created_at, updated_at)
VALUES (?, 0, ?, ?, ?)
ON DUPLICATE KEY UPDATE attributes = COALESCE(VALUES(attributes), attributes), updated_at = VALUES(updated_at)`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, id, payload, now, now); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	user, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("upsert user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

// Ensure returns the existing user or creates one with a zero balance.
func (r *UserRepository) Ensure(ctx context.Context, id string) (*models.User, bool, error) {
	user, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}
	created, err := r.Upsert(ctx, id, nil)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// AdjustCredits adds delta to the balance and returns the new value. The row
// is locked for the read-modify-write; the balance has no floor.
func (r *UserRepository) AdjustCredits(ctx context.Context, id string, delta int) (int, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	row := tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ? FOR UPDATE`, id)
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("adjust credits for %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("lock user credits: %w", err)
	}

	balance := current + delta
	if _, err := tx.ExecContext(ctx, `UPDATE users SET credits = ?, updated_at = ? WHERE id = ?`, balance, time.Now().UTC(), id); err != nil {
		return 0, fmt.Errorf("update credits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit credits tx: %w", err)
	}
	return balance, nil
}
