package gateway

// Wire-level field names fixed by the processor's contract.
const (
	FieldVersion        = "vnp_Version"
	FieldCommand        = "vnp_Command"
	FieldMerchantCode   = "vnp_TmnCode"
	FieldAmount         = "vnp_Amount"
	FieldCurrency       = "vnp_CurrCode"
	FieldTxnRef         = "vnp_TxnRef"
	FieldOrderInfo      = "vnp_OrderInfo"
	FieldOrderType      = "vnp_OrderType"
	FieldReturnURL      = "vnp_ReturnUrl"
	FieldClientIP       = "vnp_IpAddr"
	FieldCreateDate     = "vnp_CreateDate"
	FieldLocale         = "vnp_Locale"
	FieldResponseCode   = "vnp_ResponseCode"
	FieldSecureHash     = "vnp_SecureHash"
	FieldSecureHashType = "vnp_SecureHashType"
)

// Protocol constants sent on every outbound payment request.
const (
	ProtocolVersion = "2.1.0"
	CommandPay      = "pay"
	CurrencyCode    = "VND"
	DefaultLocale   = "vn"
)

// CreateDateLayout is the fixed 14-digit timestamp format the processor expects.
const CreateDateLayout = "20060102150405"

// AmountScale converts between major units and the processor's implicit
// two-decimal minor units.
const AmountScale = 100
