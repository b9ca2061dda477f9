package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config carries the per-merchant settings required to talk to the processor.
// It is passed explicitly so several configurations (e.g. sandbox and
// production) can coexist in one process.
type Config struct {
	MerchantCode string
	HashSecret   string
	PayBaseURL   string
	ReturnURL    string
	Locale       string
}

// Order describes one payment attempt. Amount is in major units; Reference must
// be unique per attempt and is the idempotency key for the whole flow.
type Order struct {
	Reference string
	Amount    int64
	Info      string
	OrderType string
	ClientIP  string
	Locale    string
}

// Request is the assembled, signed payment request: the full parameter set and
// the redirect URL handed to the browser.
type Request struct {
	URL    string
	Params Params
}

// Builder assembles and signs outbound payment requests.
type Builder struct {
	Config Config
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Build assembles the parameter set for the order, signs it and returns the
// redirect URL. It performs no network I/O.
func (b Builder) Build(order Order) (Request, error) {
	if strings.TrimSpace(b.Config.MerchantCode) == "" {
		return Request{}, fmt.Errorf("%w: merchant code is empty", ErrConfiguration)
	}
	if b.Config.HashSecret == "" {
		return Request{}, fmt.Errorf("%w: hash secret is empty", ErrConfiguration)
	}
	if strings.TrimSpace(b.Config.PayBaseURL) == "" {
		return Request{}, fmt.Errorf("%w: pay base url is empty", ErrConfiguration)
	}
	if strings.TrimSpace(order.Reference) == "" {
		return Request{}, fmt.Errorf("%w: reference is required", ErrInvalidRequest)
	}
	if order.Amount < 0 {
		return Request{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	if strings.TrimSpace(order.Info) == "" {
		return Request{}, fmt.Errorf("%w: order info is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(order.OrderType) == "" {
		return Request{}, fmt.Errorf("%w: order type is required", ErrInvalidRequest)
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	locale := strings.TrimSpace(order.Locale)
	if locale == "" {
		locale = strings.TrimSpace(b.Config.Locale)
	}
	if locale == "" {
		locale = DefaultLocale
	}

	params := Params{
		FieldVersion:      ProtocolVersion,
		FieldCommand:      CommandPay,
		FieldMerchantCode: b.Config.MerchantCode,
		FieldAmount:       strconv.FormatInt(order.Amount*AmountScale, 10),
		FieldCurrency:     CurrencyCode,
		FieldTxnRef:       order.Reference,
		FieldOrderInfo:    order.Info,
		FieldOrderType:    order.OrderType,
		FieldReturnURL:    b.Config.ReturnURL,
		FieldClientIP:     order.ClientIP,
		FieldCreateDate:   now().Format(CreateDateLayout),
		FieldLocale:       locale,
	}
	params[FieldSecureHash] = Sign(params.Canonicalize(FieldSecureHash), b.Config.HashSecret)

	base := strings.TrimRight(b.Config.PayBaseURL, "?")
	return Request{
		URL:    base + "?" + params.Encode(),
		Params: params,
	}, nil
}
