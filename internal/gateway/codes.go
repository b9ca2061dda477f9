package gateway

// Outcome is the semantic interpretation of a processor response code.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeInvalidAmount       Outcome = "invalid_amount"
	OutcomeInvalidOrderInfo    Outcome = "invalid_order_info"
	OutcomeInvalidOrderType    Outcome = "invalid_order_type"
	OutcomeUserCancelled       Outcome = "user_cancelled"
	OutcomeInsufficientBalance Outcome = "insufficient_balance"
	OutcomeLimitExceeded       Outcome = "limit_exceeded"
	OutcomeBankUnavailable     Outcome = "bank_unavailable"
	OutcomeInvalidPaymentInfo  Outcome = "invalid_payment_info"
	OutcomeUnknownError        Outcome = "unknown_error"
)

// responseCodes maps the processor's result codes to semantic outcomes.
var responseCodes = map[string]Outcome{
	"00": OutcomeSuccess,
	"01": OutcomeInvalidOrderInfo,
	"02": OutcomeInvalidOrderInfo,
	"03": OutcomeInvalidOrderType,
	"04": OutcomeInvalidAmount,
	"07": OutcomeInvalidPaymentInfo,
	"09": OutcomeInvalidPaymentInfo,
	"10": OutcomeInvalidPaymentInfo,
	"11": OutcomeBankUnavailable,
	"12": OutcomeInvalidPaymentInfo,
	"13": OutcomeInvalidPaymentInfo,
	"24": OutcomeUserCancelled,
	"51": OutcomeInsufficientBalance,
	"65": OutcomeLimitExceeded,
	"75": OutcomeBankUnavailable,
	"79": OutcomeInvalidPaymentInfo,
	"99": OutcomeUnknownError,
}

// LookupResponseCode resolves a processor response code to an Outcome. Unknown
// codes degrade to OutcomeUnknownError so a new processor-side code never
// crashes a callback handler.
func LookupResponseCode(code string) Outcome {
	if outcome, ok := responseCodes[code]; ok {
		return outcome
	}
	return OutcomeUnknownError
}
