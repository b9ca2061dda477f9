package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Sign computes the HMAC-SHA-512 digest of the canonical string under the
// shared secret, encoded as lowercase hex.
func Sign(canonical, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the secure hash over the inbound parameter set (with the
// hash fields excluded from the canonical string) and compares it to the
// transmitted hash. Comparison is case-insensitive because processors vary hex
// casing, and constant-time to avoid leaking the expected digest.
//
// A false result means the callback must be rejected outright; there is no
// partial trust.
func Verify(params Params, receivedHash, secret string) bool {
	if receivedHash == "" || secret == "" {
		return false
	}
	canonical := params.Canonicalize(FieldSecureHash, FieldSecureHashType)
	expected := Sign(canonical, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(receivedHash)))
}
