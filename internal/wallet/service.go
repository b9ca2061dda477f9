package wallet

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pay/internal/payment"
)

// Service credits the merchant wallet when a payment settles. It implements
// payment.Effector; the IPN handler already guarantees at-most-once delivery
// per transaction reference, and the unique constraint on wallet_entries is a
// second line of defence against double credit.
type Service struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

// Apply records the wallet entry and updates the balance in one transaction.
func (s *Service) Apply(ctx context.Context, txn payment.Transaction) error {
	if s == nil || s.Pool == nil {
		return fmt.Errorf("wallet: service not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("wallet: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO wallet_entries (txn_ref, amount) VALUES ($1, $2)
		ON CONFLICT (txn_ref) DO NOTHING`,
		txn.TxnRef, txn.Amount,
	)
	if err != nil {
		return fmt.Errorf("wallet: insert entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.Logger.Warn().Str("txn_ref", txn.TxnRef).Msg("wallet: entry already recorded")
		return tx.Commit(ctx)
	}
	if _, err := tx.Exec(ctx, `UPDATE wallet_balance SET balance = balance + $1 WHERE id = TRUE`, txn.Amount); err != nil {
		return fmt.Errorf("wallet: update balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("wallet: commit: %w", err)
	}
	s.Logger.Info().Str("txn_ref", txn.TxnRef).Int64("amount", txn.Amount).Msg("wallet: credited")
	return nil
}
