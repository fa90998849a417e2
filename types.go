package goOTP

import "time"

// IssueStatus is the outcome of IssueCode and ResendCode.
type IssueStatus uint8

const (
	IssueOK IssueStatus = iota
	IssueCooldown
)

func (s IssueStatus) String() string {
	switch s {
	case IssueOK:
		return "ok"
	case IssueCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// IssueResult describes a code issuance.
type IssueResult struct {
	Status IssueStatus
	// IssuedAt is when the new code was issued, or when the blocking code
	// was issued on cooldown.
	IssuedAt time.Time
	// ExpiresAt is the expiry of the new code, or of the blocking code on
	// cooldown.
	ExpiresAt time.Time
	// RetryAfter is set on cooldown: the time left until the current code
	// expires and a new one can be issued.
	RetryAfter time.Duration
	// Replaced reports that a resend discarded a still-valid code.
	Replaced bool
}

func (r IssueResult) Err() error {
	if r.Status == IssueCooldown {
		return ErrCooldownActive
	}
	return nil
}

// VerifyStatus is the outcome of VerifyCode.
type VerifyStatus uint8

const (
	VerifyVerified VerifyStatus = iota
	VerifyNotFound
	VerifyExpired
	VerifyInvalid
	VerifyLocked
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifyVerified:
		return "verified"
	case VerifyNotFound:
		return "not_found"
	case VerifyExpired:
		return "expired"
	case VerifyInvalid:
		return "invalid"
	case VerifyLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// VerifyResult describes a verification attempt.
type VerifyResult struct {
	Status VerifyStatus
	// RemainingAttempts is set for VerifyInvalid.
	RemainingAttempts int
	// Receipt is a signed proof of verification, set for VerifyVerified when
	// receipts are enabled.
	Receipt          string
	ReceiptExpiresAt time.Time
}

// Verified reports whether the code matched.
func (r VerifyResult) Verified() bool {
	return r.Status == VerifyVerified
}

// NeedsReissue reports whether the caller must request a new code. An
// Invalid result can be retried with the same code record.
func (r VerifyResult) NeedsReissue() bool {
	switch r.Status {
	case VerifyNotFound, VerifyExpired, VerifyLocked:
		return true
	default:
		return false
	}
}

func (r VerifyResult) Err() error {
	switch r.Status {
	case VerifyVerified:
		return nil
	case VerifyNotFound:
		return ErrCodeNotFound
	case VerifyExpired:
		return ErrCodeExpired
	case VerifyInvalid:
		return ErrCodeInvalid
	case VerifyLocked:
		return ErrCodeLocked
	default:
		return ErrCodeNotFound
	}
}

// ReceiptClaims is the parsed content of a verification receipt.
type ReceiptClaims struct {
	ID        string
	Identity  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
