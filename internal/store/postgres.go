package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pay/internal/payment"
)

// Postgres implements payment.TxnStore on a pgx connection pool. The Claim CAS
// relies on a single UPDATE guarded by the PENDING status, so it is atomic
// across replicas.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Create inserts a new PENDING transaction.
func (s *Postgres) Create(ctx context.Context, txn payment.Transaction) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payment_transactions (txn_ref, amount, order_info, order_type, status)
		VALUES ($1, $2, $3, $4, $5)`,
		txn.TxnRef, txn.Amount, txn.OrderInfo, txn.OrderType, string(payment.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get loads a transaction by reference.
func (s *Postgres) Get(ctx context.Context, ref string) (payment.Transaction, error) {
	var (
		txn    payment.Transaction
		status string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT txn_ref, amount, order_info, order_type, status,
		       COALESCE(response_code, ''), COALESCE(ack_code, ''), created_at, updated_at
		FROM payment_transactions WHERE txn_ref = $1`, ref,
	).Scan(&txn.TxnRef, &txn.Amount, &txn.OrderInfo, &txn.OrderType, &status,
		&txn.ResponseCode, &txn.AckCode, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.Transaction{}, payment.ErrTxnNotFound
		}
		return payment.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	txn.Status = payment.Status(status)
	return txn, nil
}

// Claim atomically moves a PENDING transaction to the given terminal result.
// When the row was already terminal, the previously recorded result is
// returned so the caller can repeat its original acknowledgment.
func (s *Postgres) Claim(ctx context.Context, ref string, result payment.Result) (payment.ClaimOutcome, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE payment_transactions
		SET status = $2, response_code = $3, ack_code = $4, updated_at = now()
		WHERE txn_ref = $1 AND status = $5`,
		ref, string(result.Status), result.ResponseCode, result.AckCode, string(payment.StatusPending),
	)
	if err != nil {
		return payment.ClaimOutcome{}, fmt.Errorf("claim transaction: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return payment.ClaimOutcome{Claimed: true}, nil
	}
	prior, err := s.Get(ctx, ref)
	if err != nil {
		return payment.ClaimOutcome{}, err
	}
	return payment.ClaimOutcome{Prior: payment.Result{
		Status:       prior.Status,
		ResponseCode: prior.ResponseCode,
		AckCode:      prior.AckCode,
	}}, nil
}

// ConfirmAck records the acknowledgment code once the business effect has
// committed. Until this write lands the claimed row carries an empty ack code
// and retried deliveries are answered as still-processing.
func (s *Postgres) ConfirmAck(ctx context.Context, ref, ackCode string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE payment_transactions
		SET ack_code = $2, updated_at = now()
		WHERE txn_ref = $1`,
		ref, ackCode,
	)
	if err != nil {
		return fmt.Errorf("confirm acknowledgment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrTxnNotFound
	}
	return nil
}

// Release returns a claimed transaction to PENDING after a failed business effect.
func (s *Postgres) Release(ctx context.Context, ref string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE payment_transactions
		SET status = $2, response_code = NULL, ack_code = NULL, updated_at = now()
		WHERE txn_ref = $1`,
		ref, string(payment.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("release transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrTxnNotFound
	}
	return nil
}

// Ping probes database connectivity within the timeout.
func (s *Postgres) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Pool.Ping(ctx)
}
