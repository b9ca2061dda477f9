package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pay/internal/common"
	"github.com/noah-isme/backend-pay/internal/gateway"
	"github.com/noah-isme/backend-pay/internal/obs"
)

// Ack is the fixed two-field acknowledgment returned to the processor on every
// IPN delivery. The processor keys its retry logic off RspCode, not the HTTP
// status, so the handler always answers 200.
type Ack struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Acknowledgment codes understood by the processor's retry loop. Signature
// failures are terminal (97); internal failures are retryable (99).
var (
	AckConfirmed        = Ack{RspCode: "00", Message: "Confirm success"}
	AckOrderNotFound    = Ack{RspCode: "01", Message: "Order not found"}
	AckAlreadyConfirmed = Ack{RspCode: "02", Message: "Order already confirmed"}
	AckInvalidAmount    = Ack{RspCode: "04", Message: "Invalid amount"}
	AckInvalidSignature = Ack{RspCode: "97", Message: "Invalid signature"}
	AckUnknownError     = Ack{RspCode: "99", Message: "Unknown error"}
)

// Effector applies the business effect of a successfully paid transaction
// (e.g. crediting a wallet). The IPN handler guarantees it runs at most once
// per transaction reference.
type Effector interface {
	Apply(ctx context.Context, txn Transaction) error
}

// IPN handles the server-to-server notification from the processor. It is the
// authoritative callback: it verifies the signature, claims the transaction
// reference atomically and applies the business effect exactly once, while
// acknowledging idempotently on retries.
type IPN struct {
	HashSecret string
	Store      TxnStore
	Effect     Effector
	Logger     zerolog.Logger
}

// Handle processes one IPN delivery and always writes an acknowledgment.
func (h IPN) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("payment.IPN").Start(r.Context(), "PaymentIPN.Handle")
	defer span.End()
	r = r.WithContext(ctx)

	ack := h.process(r)
	span.SetAttributes(attribute.String("payment.ipn.rsp_code", ack.RspCode))
	if obs.IPNTotal != nil {
		obs.IPNTotal.WithLabelValues(ack.RspCode).Inc()
	}
	common.JSON(w, http.StatusOK, ack)
}

func (h IPN) process(r *http.Request) Ack {
	if h.Store == nil {
		return AckUnknownError
	}
	if err := r.ParseForm(); err != nil {
		return AckUnknownError
	}
	params := gateway.ParamsFromValues(r.Form)

	hash, ok := params[gateway.FieldSecureHash]
	if !ok || strings.TrimSpace(hash) == "" {
		return AckInvalidSignature
	}
	if !gateway.Verify(params, hash, h.HashSecret) {
		return AckInvalidSignature
	}

	ref := params[gateway.FieldTxnRef]
	ctx := r.Context()

	txn, err := h.Store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrTxnNotFound) {
			return AckOrderNotFound
		}
		h.Logger.Error().Err(err).Str("txn_ref", ref).Msg("ipn: load transaction")
		return AckUnknownError
	}

	minor, err := strconv.ParseInt(params[gateway.FieldAmount], 10, 64)
	if err != nil || minor != txn.Amount*gateway.AmountScale {
		return AckInvalidAmount
	}

	code := params[gateway.FieldResponseCode]
	outcome := gateway.LookupResponseCode(code)
	status := StatusFailed
	if outcome == gateway.OutcomeSuccess {
		status = StatusPaid
	}

	// The claim carries no ack code yet; "00" is only recorded once the
	// business effect has committed. A claimed row with an empty ack code is
	// still in flight.
	claim, err := h.Store.Claim(ctx, ref, Result{
		Status:       status,
		ResponseCode: code,
	})
	if err != nil {
		h.Logger.Error().Err(err).Str("txn_ref", ref).Msg("ipn: claim transaction")
		return AckUnknownError
	}
	if !claim.Claimed {
		if claim.Prior.AckCode == "" {
			// Another delivery holds the claim and its effect has not
			// committed yet. Answer retryable: if that effect fails the claim
			// is released and the processor's next attempt settles it; a
			// terminal "00" here could acknowledge a credit that never lands.
			return AckUnknownError
		}
		// Retried delivery of an already-processed notification: repeat the
		// acknowledgment of the first processing without any side effect.
		if claim.Prior.ResponseCode == code {
			return Ack{RspCode: claim.Prior.AckCode, Message: AckConfirmed.Message}
		}
		return AckAlreadyConfirmed
	}

	if status == StatusPaid && h.Effect != nil {
		if err := h.Effect.Apply(ctx, txn); err != nil {
			h.Logger.Error().Err(err).Str("txn_ref", ref).Msg("ipn: business effect failed")
			if relErr := h.Store.Release(ctx, ref); relErr != nil {
				h.Logger.Error().Err(relErr).Str("txn_ref", ref).Msg("ipn: release claim")
			}
			// Retryable: the processor redelivers and the released claim lets
			// the next attempt apply the effect.
			return AckUnknownError
		}
	}

	if err := h.Store.ConfirmAck(ctx, ref, AckConfirmed.RspCode); err != nil {
		h.Logger.Error().Err(err).Str("txn_ref", ref).Msg("ipn: record acknowledgment")
		// The ack was not durably recorded, so replays would be answered as
		// still-processing forever. Release and let the retry re-apply; the
		// effect is guarded against double credit.
		if relErr := h.Store.Release(ctx, ref); relErr != nil {
			h.Logger.Error().Err(relErr).Str("txn_ref", ref).Msg("ipn: release claim")
		}
		return AckUnknownError
	}

	h.Logger.Info().
		Str("txn_ref", ref).
		Str("response_code", code).
		Str("status", string(status)).
		Msg("ipn: transaction confirmed")
	return AckConfirmed
}
