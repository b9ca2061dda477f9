package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pay/internal/common"
	"github.com/noah-isme/backend-pay/internal/obs"
)

// Handler exposes HTTP endpoints for creating payments and polling status.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createResp struct {
	TxnRef string `json:"txnRef"`
	PayURL string `json:"payUrl"`
	Amount int64  `json:"amount"`
}

// Create opens a new payment attempt and returns the processor redirect URL.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			countCreate("rejected")
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
			return
		}
	}
	req.ClientIP = common.ClientIP(r)

	created, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		countCreate("error")
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "CREATE_FAILED", err.Error(), nil)
		return
	}
	countCreate("created")
	common.JSON(w, http.StatusCreated, createResp{
		TxnRef: created.TxnRef,
		PayURL: created.PayURL,
		Amount: created.Amount,
	})
}

func countCreate(result string) {
	if obs.PaymentRequestTotal != nil {
		obs.PaymentRequestTotal.WithLabelValues(result).Inc()
	}
}

// Status reports the recorded lifecycle status for a transaction reference.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	ref := strings.TrimSpace(chi.URLParam(r, "txnRef"))
	if ref == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "txnRef is required", nil)
		return
	}
	status, err := h.Svc.Status(r.Context(), ref)
	if err != nil {
		if errors.Is(err, ErrTxnNotFound) {
			common.JSONError(w, http.StatusNotFound, "TXN_NOT_FOUND", "transaction not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "STATUS_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{
		"orderReference": ref,
		"status":         string(status),
	})
}
