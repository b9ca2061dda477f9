package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pay/internal/gateway"
)

func testRouter(store TxnStore) http.Handler {
	svc := &Service{
		Store: store,
		Builder: gateway.Builder{
			Config: gateway.Config{
				MerchantCode: "SANDBOX01",
				HashSecret:   ipnTestSecret,
				PayBaseURL:   "https://sandbox.example.com/paymentv2/vpcpay.html",
				ReturnURL:    "https://merchant.example.com/api/v1/payments/return",
			},
			Now: func() time.Time { return time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC) },
		},
		RefPrefix: "ORDER_",
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
	}
	h := &Handler{Svc: svc, Validate: validator.New()}

	r := chi.NewRouter()
	r.Route("/api/v1/payments", func(p chi.Router) {
		p.Post("/", h.Create)
		p.Get("/{txnRef}/status", h.Status)
	})
	return r
}

func TestCreatePaymentReturnsSignedRedirectURL(t *testing.T) {
	store := NewMemStore()
	router := testRouter(store)

	body := `{"amount":100000,"orderInfo":"order ORDER_1700000000000","orderType":"other"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp createResp
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ORDER_1700000000000", resp.TxnRef)
	require.Equal(t, int64(100000), resp.Amount)

	u, err := url.Parse(resp.PayURL)
	require.NoError(t, err)
	params := gateway.ParamsFromValues(u.Query())
	require.Equal(t, "10000000", params[gateway.FieldAmount])
	require.True(t, gateway.Verify(params, params[gateway.FieldSecureHash], ipnTestSecret))

	txn, err := store.Get(req.Context(), "ORDER_1700000000000")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status)
}

func TestCreatePaymentValidation(t *testing.T) {
	router := testRouter(NewMemStore())

	cases := []struct {
		name string
		body string
	}{
		{"missing amount", `{"orderInfo":"x","orderType":"other"}`},
		{"negative amount", `{"amount":-5,"orderInfo":"x","orderType":"other"}`},
		{"missing order info", `{"amount":1000,"orderType":"other"}`},
		{"not json", `amount=1000`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	store := NewMemStore()
	router := testRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/NOPE/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	seedTxn(t, store, "ORDER_S1", 1000)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/payments/ORDER_S1/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ORDER_S1", resp["orderReference"])
	require.Equal(t, string(StatusPending), resp["status"])
}
