package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pay/internal/common"
	"github.com/noah-isme/backend-pay/internal/gateway"
)

// Service coordinates outbound payment requests and status retrieval.
type Service struct {
	Store     TxnStore
	Builder   gateway.Builder
	RefPrefix string
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// CreateRequest captures the caller's order details for a new payment attempt.
type CreateRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	OrderInfo string `json:"orderInfo" validate:"required"`
	OrderType string `json:"orderType" validate:"required"`
	Locale    string `json:"locale"`
	ClientIP  string `json:"-"`
}

// Created is the caller-facing result of opening a payment attempt.
type Created struct {
	TxnRef string
	PayURL string
	Amount int64
}

// Create assembles and signs a payment request, persists the PENDING
// transaction and returns the redirect URL. The transaction reference is
// prefix + unix-millis, unique per attempt within one deployment.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Created, error) {
	if s == nil || s.Store == nil {
		return Created{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.Create")
	defer span.End()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ref := fmt.Sprintf("%s%d", strings.TrimSpace(s.RefPrefix), now().UnixMilli())
	span.SetAttributes(attribute.String("payment.txn_ref", ref))

	built, err := s.Builder.Build(gateway.Order{
		Reference: ref,
		Amount:    req.Amount,
		Info:      req.OrderInfo,
		OrderType: req.OrderType,
		ClientIP:  req.ClientIP,
		Locale:    req.Locale,
	})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, gateway.ErrConfiguration):
			return Created{}, common.NewAppError("GATEWAY_NOT_CONFIGURED", "payment gateway not configured", http.StatusInternalServerError, err)
		case errors.Is(err, gateway.ErrInvalidRequest):
			return Created{}, common.NewAppError("INVALID_REQUEST", err.Error(), http.StatusBadRequest, err)
		default:
			return Created{}, err
		}
	}

	if err := s.Store.Create(ctx, Transaction{
		TxnRef:    ref,
		Amount:    req.Amount,
		OrderInfo: req.OrderInfo,
		OrderType: req.OrderType,
		Status:    StatusPending,
	}); err != nil {
		span.RecordError(err)
		return Created{}, fmt.Errorf("persist transaction: %w", err)
	}
	return Created{TxnRef: ref, PayURL: built.URL, Amount: req.Amount}, nil
}

// Status returns the coarse lifecycle status recorded for a transaction
// reference. It is informational; the IPN path is the authority.
func (s *Service) Status(ctx context.Context, ref string) (Status, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("payment service not configured")
	}
	txn, err := s.Store.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	return txn.Status, nil
}
