package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/artrelay/internal/models"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append records a ledger entry. Entries are never updated afterwards.
func (r *TransactionRepository) Append(ctx context.Context, txn *models.Transaction) error {
	txn.ID = uuid.NewString()
	txn.CreatedAt = time.Now().UTC()

	const query = `
INSERT INTO transactions (id, user_id, amount, type, order_id, payment_id, image_id, amount_paid, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, txn.ID, txn.UserID, txn.Amount, string(txn.Type),
		txn.OrderID, txn.PaymentID, txn.ImageID, txn.AmountPaid, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	const query = `
SELECT id, user_id, amount, type, order_id, payment_id, image_id, amount_paid, created_at
FROM transactions
WHERE user_id = ?
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		var kind string
		var orderID, paymentID, imageID sql.NullString
		var amountPaid sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &kind, &orderID, &paymentID, &imageID, &amountPaid, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = models.TransactionType(kind)
		t.OrderID = nullableString(orderID)
		t.PaymentID = nullableString(paymentID)
		t.ImageID = nullableString(imageID)
		if amountPaid.Valid {
			v := int(amountPaid.Int64)
			t.AmountPaid = &v
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
