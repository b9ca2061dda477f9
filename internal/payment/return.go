package payment

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-pay/internal/common"
	"github.com/noah-isme/backend-pay/internal/gateway"
	"github.com/noah-isme/backend-pay/internal/obs"
)

// Return handles the browser-facing return-URL callback. It verifies the
// signature and interprets the response code, but never applies business
// effects; the IPN path is the authority.
type Return struct {
	HashSecret string
	Store      TxnStore
}

type returnView struct {
	OrderReference string          `json:"orderReference"`
	Outcome        gateway.Outcome `json:"outcome"`
	ResponseCode   string          `json:"responseCode"`
	Amount         int64           `json:"amount"`
	Success        bool            `json:"success"`
	// Status is the state recorded by the IPN path, when known. The redirect
	// often races the notification, so a success outcome here can still show
	// PENDING.
	Status string `json:"status,omitempty"`
}

// Handle processes the redirect query string and renders the caller-facing
// payment result.
func (h Return) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("payment.Return").Start(r.Context(), "PaymentReturn.Handle")
	defer span.End()
	r = r.WithContext(ctx)

	outcomeLabel := "rejected"
	defer func() {
		if obs.ReturnCallbackTotal != nil {
			obs.ReturnCallbackTotal.WithLabelValues(outcomeLabel).Inc()
		}
	}()

	params := gateway.ParamsFromValues(r.URL.Query())
	hash, ok := params[gateway.FieldSecureHash]
	if !ok || strings.TrimSpace(hash) == "" {
		span.RecordError(gateway.ErrMissingSignature)
		common.JSONError(w, http.StatusBadRequest, "MISSING_SIGNATURE", "secure hash missing", nil)
		return
	}
	if !gateway.Verify(params, hash, h.HashSecret) {
		span.RecordError(gateway.ErrInvalidSignature)
		common.JSONError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}

	ref := params[gateway.FieldTxnRef]
	code := params[gateway.FieldResponseCode]
	outcome := gateway.LookupResponseCode(code)
	span.SetAttributes(
		attribute.String("payment.txn_ref", ref),
		attribute.String("payment.response_code", code),
	)

	minor, err := strconv.ParseInt(params[gateway.FieldAmount], 10, 64)
	if err != nil || minor < 0 {
		common.JSONError(w, http.StatusBadRequest, "INVALID_AMOUNT", "amount field is not a valid integer", nil)
		return
	}

	outcomeLabel = string(outcome)
	view := returnView{
		OrderReference: ref,
		Outcome:        outcome,
		ResponseCode:   code,
		Amount:         minor / gateway.AmountScale,
		Success:        outcome == gateway.OutcomeSuccess,
	}
	if h.Store != nil {
		if txn, err := h.Store.Get(ctx, ref); err == nil {
			view.Status = string(txn.Status)
		}
	}
	common.JSON(w, http.StatusOK, view)
}
