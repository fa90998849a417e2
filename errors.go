package goOTP

import "errors"

// Outcome sentinels. VerifyCode and IssueCode report these as tagged results;
// IssueResult.Err and VerifyResult.Err map them back for errors.Is callers.
var (
	ErrCooldownActive = errors.New("otp cooldown active")
	ErrCodeNotFound   = errors.New("otp not found")
	ErrCodeExpired    = errors.New("otp expired")
	ErrCodeInvalid    = errors.New("otp invalid")
	ErrCodeLocked     = errors.New("otp attempts exhausted")
)

// Failures returned through the error result.
var (
	// ErrInvalidIdentity is returned for an empty identity.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrServiceClosed is returned by every operation after Close.
	ErrServiceClosed = errors.New("otp service closed")
	// ErrRateLimited is returned when the request limiter denies a call.
	ErrRateLimited = errors.New("otp request rate limited")
	// ErrLimiterUnavailable is returned when the limiter backend fails.
	// The request is rejected rather than allowed through unthrottled.
	ErrLimiterUnavailable = errors.New("otp limiter unavailable")
	// ErrCodeGeneration is returned when the code generator fails.
	ErrCodeGeneration = errors.New("otp code generation failed")
	// ErrReceiptUnavailable accompanies a Verified result when the receipt
	// could not be signed. The code is consumed regardless.
	ErrReceiptUnavailable = errors.New("verification receipt unavailable")
	ErrReceiptInvalid     = errors.New("verification receipt invalid")
	ErrReceiptDisabled    = errors.New("verification receipts disabled")
)
