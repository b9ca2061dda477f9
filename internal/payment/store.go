package payment

import (
	"context"
	"errors"
	"time"
)

// Status is the coarse lifecycle state of a payment transaction.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether the status cannot change any more.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusFailed
}

// Transaction is one payment attempt keyed by its transaction reference.
// Amount is in major currency units; the wire carries minor units.
type Transaction struct {
	TxnRef       string
	Amount       int64
	OrderInfo    string
	OrderType    string
	Status       Status
	ResponseCode string
	AckCode      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Result is the terminal state recorded when a notification is processed.
type Result struct {
	Status       Status
	ResponseCode string
	AckCode      string
}

// ClaimOutcome reports whether a Claim transitioned the transaction. When
// Claimed is false Prior holds the result recorded by the earlier claim.
type ClaimOutcome struct {
	Claimed bool
	Prior   Result
}

// ErrTxnNotFound is returned when no transaction exists for a reference.
var ErrTxnNotFound = errors.New("transaction not found")

// TxnStore persists payment transactions. Claim must be atomic: of any number
// of concurrent claims for the same reference exactly one observes
// Claimed=true. The acknowledgment code is recorded separately via ConfirmAck
// once the business effect has committed; a claimed row with an empty AckCode
// is still being processed.
type TxnStore interface {
	Create(ctx context.Context, txn Transaction) error
	Get(ctx context.Context, ref string) (Transaction, error)
	Claim(ctx context.Context, ref string, result Result) (ClaimOutcome, error)
	ConfirmAck(ctx context.Context, ref, ackCode string) error
	Release(ctx context.Context, ref string) error
}
