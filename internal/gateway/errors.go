package gateway

import "errors"

var (
	// ErrInvalidRequest marks a malformed outbound payment request. It is
	// surfaced to the caller and never sent to the processor.
	ErrInvalidRequest = errors.New("gateway: invalid payment request")
	// ErrConfiguration marks a missing merchant code or shared secret.
	ErrConfiguration = errors.New("gateway: gateway not configured")
	// ErrMissingSignature marks an inbound callback without a secure hash.
	ErrMissingSignature = errors.New("gateway: secure hash missing")
	// ErrInvalidSignature marks an inbound callback whose secure hash does not
	// match the recomputed digest.
	ErrInvalidSignature = errors.New("gateway: secure hash mismatch")
)
