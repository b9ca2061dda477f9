package payment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore is a mutex-guarded TxnStore for tests and single-process use.
type MemStore struct {
	mu   sync.Mutex
	txns map[string]Transaction
}

// NewMemStore returns an empty in-memory transaction store.
func NewMemStore() *MemStore {
	return &MemStore{txns: make(map[string]Transaction)}
}

func (m *MemStore) Create(_ context.Context, txn Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.txns[txn.TxnRef]; exists {
		return fmt.Errorf("transaction %s already exists", txn.TxnRef)
	}
	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	if txn.Status == "" {
		txn.Status = StatusPending
	}
	m.txns[txn.TxnRef] = txn
	return nil
}

func (m *MemStore) Get(_ context.Context, ref string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[ref]
	if !ok {
		return Transaction{}, ErrTxnNotFound
	}
	return txn, nil
}

func (m *MemStore) Claim(_ context.Context, ref string, result Result) (ClaimOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[ref]
	if !ok {
		return ClaimOutcome{}, ErrTxnNotFound
	}
	if txn.Status != StatusPending {
		return ClaimOutcome{Prior: Result{
			Status:       txn.Status,
			ResponseCode: txn.ResponseCode,
			AckCode:      txn.AckCode,
		}}, nil
	}
	txn.Status = result.Status
	txn.ResponseCode = result.ResponseCode
	txn.AckCode = result.AckCode
	txn.UpdatedAt = time.Now()
	m.txns[ref] = txn
	return ClaimOutcome{Claimed: true}, nil
}

func (m *MemStore) ConfirmAck(_ context.Context, ref, ackCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[ref]
	if !ok {
		return ErrTxnNotFound
	}
	txn.AckCode = ackCode
	txn.UpdatedAt = time.Now()
	m.txns[ref] = txn
	return nil
}

func (m *MemStore) Release(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[ref]
	if !ok {
		return ErrTxnNotFound
	}
	txn.Status = StatusPending
	txn.ResponseCode = ""
	txn.AckCode = ""
	txn.UpdatedAt = time.Now()
	m.txns[ref] = txn
	return nil
}
