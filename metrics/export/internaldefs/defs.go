package internaldefs

import (
	goOTP "github.com/MrEthical07/goOTP"
)

// CounterDef names one goOTP counter for exporters.
type CounterDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// HistogramDef names one goOTP histogram for exporters.
type HistogramDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goOTP.MetricIssueSuccess, Name: "otp_issue_success_total", Help: "Codes issued."},
	{ID: goOTP.MetricIssueCooldown, Name: "otp_issue_cooldown_total", Help: "Issue requests refused because a valid code exists."},
	{ID: goOTP.MetricResendSuccess, Name: "otp_resend_success_total", Help: "Codes issued through resend."},
	{ID: goOTP.MetricResendReplaced, Name: "otp_resend_replaced_total", Help: "Resends that discarded a still-valid code."},
	{ID: goOTP.MetricVerifyVerified, Name: "otp_verify_verified_total", Help: "Successful verifications."},
	{ID: goOTP.MetricVerifyNotFound, Name: "otp_verify_not_found_total", Help: "Verifications with no code on record."},
	{ID: goOTP.MetricVerifyExpired, Name: "otp_verify_expired_total", Help: "Verifications against an expired code."},
	{ID: goOTP.MetricVerifyInvalid, Name: "otp_verify_invalid_total", Help: "Wrong codes with attempts remaining."},
	{ID: goOTP.MetricVerifyLocked, Name: "otp_verify_locked_total", Help: "Verifications that exhausted the attempt budget."},
	{ID: goOTP.MetricRateLimitHit, Name: "otp_rate_limit_hit_total", Help: "Requests denied by the request limiter."},
	{ID: goOTP.MetricLimiterUnavailable, Name: "otp_limiter_unavailable_total", Help: "Requests rejected because the limiter backend failed."},
	{ID: goOTP.MetricDeliveryFailure, Name: "otp_delivery_failure_total", Help: "Deliverer errors."},
	{ID: goOTP.MetricDeliveryDropped, Name: "otp_delivery_dropped_total", Help: "Codes dropped by a full delivery queue."},
	{ID: goOTP.MetricReceiptIssued, Name: "otp_receipt_issued_total", Help: "Verification receipts signed."},
	{ID: goOTP.MetricReceiptFailure, Name: "otp_receipt_failure_total", Help: "Verification receipts that failed to sign."},
	{ID: goOTP.MetricReaperSweeps, Name: "otp_reaper_sweeps_total", Help: "Reaper sweeps run."},
	{ID: goOTP.MetricReaperEvicted, Name: "otp_reaper_evicted_total", Help: "Expired records evicted by the reaper."},
}

var HistogramDefs = []HistogramDef{
	{ID: goOTP.MetricVerifyLatency, Name: "otp_verify_latency_seconds", Help: "VerifyCode critical section latency."},
}

// HistogramBounds are the upper bounds of the core histogram buckets in
// seconds: 10µs, 50µs, 100µs, 500µs, 1ms, 5ms, 25ms.
var HistogramBounds = []string{
	"0.00001",
	"0.00005",
	"0.0001",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters valid in an
// instrument name.
var HistogramBoundSuffix = []string{
	"0_00001",
	"0_00005",
	"0_0001",
	"0_0005",
	"0_001",
	"0_005",
	"0_025",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding or truncating to
// eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
