package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pay/internal/gateway"
)

const ipnTestSecret = "SANDBOXSECRET123"

type countingEffect struct {
	mu       sync.Mutex
	applied  int
	failNext int
}

func (e *countingEffect) Apply(_ context.Context, _ Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failNext > 0 {
		e.failNext--
		return errors.New("ledger unavailable")
	}
	e.applied++
	return nil
}

func (e *countingEffect) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

func signedQuery(fields map[string]string, secret string) url.Values {
	params := make(gateway.Params, len(fields))
	for k, v := range fields {
		params[k] = v
	}
	params[gateway.FieldSecureHash] = gateway.Sign(params.Canonicalize(gateway.FieldSecureHash), secret)
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values
}

func deliverIPN(t *testing.T, h IPN, query url.Values) Ack {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var ack Ack
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
	return ack
}

func seedTxn(t *testing.T, store *MemStore, ref string, amount int64) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), Transaction{
		TxnRef:    ref,
		Amount:    amount,
		OrderInfo: "order " + ref,
		OrderType: "other",
		Status:    StatusPending,
	}))
}

func successFields(ref string, amount int64) map[string]string {
	return map[string]string{
		gateway.FieldTxnRef:       ref,
		gateway.FieldAmount:       strconv.FormatInt(amount*gateway.AmountScale, 10),
		gateway.FieldResponseCode: "00",
		gateway.FieldMerchantCode: "SANDBOX01",
	}
}

func TestIPNConfirmsAndAppliesEffectOnce(t *testing.T) {
	store := NewMemStore()
	effect := &countingEffect{}
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_1", 100000)
	query := signedQuery(successFields("ORDER_1", 100000), ipnTestSecret)

	ack := deliverIPN(t, h, query)
	require.Equal(t, AckConfirmed, ack)
	require.Equal(t, 1, effect.count())

	txn, err := store.Get(context.Background(), "ORDER_1")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, txn.Status)
	require.Equal(t, "00", txn.ResponseCode)
}

func TestIPNReplaySameResultIsIdempotent(t *testing.T) {
	store := NewMemStore()
	effect := &countingEffect{}
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_2", 50000)
	query := signedQuery(successFields("ORDER_2", 50000), ipnTestSecret)

	first := deliverIPN(t, h, query)
	second := deliverIPN(t, h, query)

	require.Equal(t, AckConfirmed, first)
	require.Equal(t, first, second)
	require.Equal(t, 1, effect.count(), "replay must not apply the effect again")
}

func TestIPNReplayWithDifferentResultIsRejected(t *testing.T) {
	store := NewMemStore()
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: &countingEffect{}, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_3", 70000)
	ack := deliverIPN(t, h, signedQuery(successFields("ORDER_3", 70000), ipnTestSecret))
	require.Equal(t, AckConfirmed, ack)

	conflicting := successFields("ORDER_3", 70000)
	conflicting[gateway.FieldResponseCode] = "24"
	ack = deliverIPN(t, h, signedQuery(conflicting, ipnTestSecret))
	require.Equal(t, AckAlreadyConfirmed.RspCode, ack.RspCode)
}

func TestIPNMissingSignature(t *testing.T) {
	store := NewMemStore()
	h := IPN{HashSecret: ipnTestSecret, Store: store, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_4", 10000)
	values := url.Values{}
	for k, v := range successFields("ORDER_4", 10000) {
		values.Set(k, v)
	}

	ack := deliverIPN(t, h, values)
	require.Equal(t, AckInvalidSignature.RspCode, ack.RspCode)
}

func TestIPNTamperedPayload(t *testing.T) {
	store := NewMemStore()
	effect := &countingEffect{}
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_5", 10000)
	query := signedQuery(successFields("ORDER_5", 10000), ipnTestSecret)
	query.Set(gateway.FieldAmount, "999999900")

	ack := deliverIPN(t, h, query)
	require.Equal(t, AckInvalidSignature.RspCode, ack.RspCode)
	require.Zero(t, effect.count())

	txn, err := store.Get(context.Background(), "ORDER_5")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status)
}

func TestIPNWrongSecret(t *testing.T) {
	store := NewMemStore()
	h := IPN{HashSecret: ipnTestSecret, Store: store, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_6", 10000)
	query := signedQuery(successFields("ORDER_6", 10000), "WRONGSECRET")

	ack := deliverIPN(t, h, query)
	require.Equal(t, AckInvalidSignature.RspCode, ack.RspCode)
}

func TestIPNUnknownReference(t *testing.T) {
	h := IPN{HashSecret: ipnTestSecret, Store: NewMemStore(), Logger: zerolog.Nop()}

	query := signedQuery(successFields("ORDER_MISSING", 10000), ipnTestSecret)
	ack := deliverIPN(t, h, query)
	require.Equal(t, AckOrderNotFound.RspCode, ack.RspCode)
}

func TestIPNAmountMismatch(t *testing.T) {
	store := NewMemStore()
	effect := &countingEffect{}
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_7", 10000)
	fields := successFields("ORDER_7", 10000)
	fields[gateway.FieldAmount] = strconv.FormatInt(9999*gateway.AmountScale, 10)

	ack := deliverIPN(t, h, signedQuery(fields, ipnTestSecret))
	require.Equal(t, AckInvalidAmount.RspCode, ack.RspCode)
	require.Zero(t, effect.count())

	txn, err := store.Get(context.Background(), "ORDER_7")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status)
}

func TestIPNFailedPaymentRecordsFailureWithoutEffect(t *testing.T) {
	store := NewMemStore()
	effect := &countingEffect{}
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_8", 10000)
	fields := successFields("ORDER_8", 10000)
	fields[gateway.FieldResponseCode] = "24"

	ack := deliverIPN(t, h, signedQuery(fields, ipnTestSecret))
	require.Equal(t, AckConfirmed, ack)
	require.Zero(t, effect.count())

	txn, err := store.Get(context.Background(), "ORDER_8")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, txn.Status)
	require.Equal(t, "24", txn.ResponseCode)
}

func TestIPNEffectFailureIsRetryable(t *testing.T) {
	store := NewMemStore()
	effect := &countingEffect{failNext: 1}
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_9", 10000)
	query := signedQuery(successFields("ORDER_9", 10000), ipnTestSecret)

	ack := deliverIPN(t, h, query)
	require.Equal(t, AckUnknownError.RspCode, ack.RspCode)

	txn, err := store.Get(context.Background(), "ORDER_9")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status, "claim must be released after effect failure")

	ack = deliverIPN(t, h, query)
	require.Equal(t, AckConfirmed, ack)
	require.Equal(t, 1, effect.count())
}

// gatedEffect blocks its first Apply until released and then fails it;
// later calls succeed immediately.
type gatedEffect struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func newGatedEffect() *gatedEffect {
	return &gatedEffect{entered: make(chan struct{}), release: make(chan struct{})}
}

func (e *gatedEffect) Apply(_ context.Context, _ Transaction) error {
	e.mu.Lock()
	e.calls++
	first := e.calls == 1
	e.mu.Unlock()
	if first {
		close(e.entered)
		<-e.release
		return errors.New("ledger unavailable")
	}
	return nil
}

func TestIPNReplayDuringInFlightEffectIsRetryable(t *testing.T) {
	store := NewMemStore()
	effect := newGatedEffect()
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: effect, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_11", 10000)
	query := signedQuery(successFields("ORDER_11", 10000), ipnTestSecret)

	firstAck := make(chan Ack, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn?"+query.Encode(), nil)
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		var ack Ack
		_ = json.NewDecoder(rec.Body).Decode(&ack)
		firstAck <- ack
	}()

	// The first delivery holds the claim and is blocked inside its effect. A
	// replay arriving now must not receive a terminal success ack: the effect
	// may still fail and be released, and a processor that heard "00" would
	// never redeliver.
	<-effect.entered
	replay := deliverIPN(t, h, query)
	require.Equal(t, AckUnknownError.RspCode, replay.RspCode)

	close(effect.release)
	require.Equal(t, AckUnknownError.RspCode, (<-firstAck).RspCode)

	txn, err := store.Get(context.Background(), "ORDER_11")
	require.NoError(t, err)
	require.Equal(t, StatusPending, txn.Status)

	ack := deliverIPN(t, h, query)
	require.Equal(t, AckConfirmed, ack)

	ack = deliverIPN(t, h, query)
	require.Equal(t, AckConfirmed, ack, "replay after settlement repeats the recorded ack")
}

func TestIPNHashCaseInsensitive(t *testing.T) {
	store := NewMemStore()
	h := IPN{HashSecret: ipnTestSecret, Store: store, Effect: &countingEffect{}, Logger: zerolog.Nop()}

	seedTxn(t, store, "ORDER_10", 10000)
	query := signedQuery(successFields("ORDER_10", 10000), ipnTestSecret)
	upper := make(url.Values, len(query))
	for k, vals := range query {
		upper[k] = vals
	}
	upper.Set(gateway.FieldSecureHash, upperHex(query.Get(gateway.FieldSecureHash)))

	ack := deliverIPN(t, h, upper)
	require.Equal(t, AckConfirmed, ack)
}

func upperHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
