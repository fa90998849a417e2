package goOTP

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/reaper"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/MrEthical07/goOTP/receipt"
	"go.uber.org/zap"
)

// Service issues and verifies one-time codes. All methods are safe for
// concurrent use. Build one with New().Build() and Close it on shutdown.
type Service struct {
	config Config

	store     *stores.MemoryStore
	clock     clock.Clock
	logger    *zap.Logger
	deliverer Deliverer
	generator CodeGenerator

	limiter  *limiters.RequestLimiter
	receipts *receipt.Manager
	metrics  *Metrics
	audit    *dispatcher[AuditEvent]
	delivery *dispatcher[deliveryJob]
	reaper   *reaper.Reaper

	closed    atomic.Bool
	closeOnce sync.Once
}

// IssueCode creates a code for identity unless a still-valid one exists, in
// which case the result is IssueCooldown and the existing code is left alone.
// The code is handed to the Deliverer after the record is stored.
func (s *Service) IssueCode(ctx context.Context, identity string) (IssueResult, error) {
	if err := s.checkUsable(identity); err != nil {
		return IssueResult{}, err
	}
	if err := s.mapLimiterError(ctx, "issue", identity, s.limiter.CheckIssue(ctx, identity, clientIPFromContext(ctx))); err != nil {
		return IssueResult{}, err
	}

	code, err := s.generator.Generate()
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}

	now := s.clock.Now()
	fresh := s.newRecord(code, now)

	var res IssueResult
	s.store.Mutate(identity, func(current stores.Record, exists bool) (stores.Record, stores.Op) {
		if exists && current.ExpiresAt.After(now) {
			res = IssueResult{
				Status:     IssueCooldown,
				IssuedAt:   current.IssuedAt,
				ExpiresAt:  current.ExpiresAt,
				RetryAfter: current.ExpiresAt.Sub(now),
			}
			return current, stores.OpKeep
		}
		res = IssueResult{Status: IssueOK, IssuedAt: fresh.IssuedAt, ExpiresAt: fresh.ExpiresAt}
		return fresh, stores.OpPut
	})

	if res.Status == IssueCooldown {
		s.metrics.Inc(MetricIssueCooldown)
		s.emitIssueAudit(ctx, auditEventIssue, identity, res)
		return res, nil
	}

	s.metrics.Inc(MetricIssueSuccess)
	s.dispatchDelivery(ctx, identity, code)
	s.emitIssueAudit(ctx, auditEventIssue, identity, res)
	return res, nil
}

// ResendCode replaces any record for identity with a fresh code. Unlike
// IssueCode it does not honor the cooldown.
func (s *Service) ResendCode(ctx context.Context, identity string) (IssueResult, error) {
	if err := s.checkUsable(identity); err != nil {
		return IssueResult{}, err
	}
	if err := s.mapLimiterError(ctx, "resend", identity, s.limiter.CheckIssue(ctx, identity, clientIPFromContext(ctx))); err != nil {
		return IssueResult{}, err
	}

	code, err := s.generator.Generate()
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}

	now := s.clock.Now()
	fresh := s.newRecord(code, now)

	var replaced bool
	s.store.Mutate(identity, func(current stores.Record, exists bool) (stores.Record, stores.Op) {
		replaced = exists && current.ExpiresAt.After(now)
		return fresh, stores.OpPut
	})

	res := IssueResult{Status: IssueOK, IssuedAt: fresh.IssuedAt, ExpiresAt: fresh.ExpiresAt, Replaced: replaced}

	s.metrics.Inc(MetricResendSuccess)
	if replaced {
		s.metrics.Inc(MetricResendReplaced)
	}
	s.dispatchDelivery(ctx, identity, code)
	s.emitIssueAudit(ctx, auditEventResend, identity, res)
	return res, nil
}

// VerifyCode checks code against the record for identity.
//
// Checks run in order under the identity's lock: a missing record is
// NotFound; an expired record is deleted and reported Expired even when the
// code matches; an exhausted record is deleted and reported Locked; a match
// deletes the record and is Verified. A mismatch consumes one attempt and
// yields Invalid with the remaining count, or Locked (and deletion) when it
// was the last one.
//
// A Verified result may come with ErrReceiptUnavailable when receipts are
// enabled and signing failed. The code is consumed either way. A service
// configured with only an ed25519 public key verifies codes without minting
// receipts.
func (s *Service) VerifyCode(ctx context.Context, identity, code string) (VerifyResult, error) {
	if err := s.checkUsable(identity); err != nil {
		return VerifyResult{}, err
	}
	if err := s.mapLimiterError(ctx, "verify", identity, s.limiter.CheckVerify(ctx, clientIPFromContext(ctx))); err != nil {
		return VerifyResult{}, err
	}

	var start time.Time
	if s.metrics.LatencyEnabled() {
		start = time.Now()
	}

	now := s.clock.Now()
	candidate := internal.HashOTP(code)
	maxAttempts := s.config.Code.MaxAttempts

	var res VerifyResult
	s.store.Mutate(identity, func(current stores.Record, exists bool) (stores.Record, stores.Op) {
		switch {
		case !exists:
			res = VerifyResult{Status: VerifyNotFound}
			return current, stores.OpKeep
		case now.After(current.ExpiresAt):
			res = VerifyResult{Status: VerifyExpired}
			return current, stores.OpDelete
		case current.Attempts >= maxAttempts:
			res = VerifyResult{Status: VerifyLocked}
			return current, stores.OpDelete
		case internal.EqualOTPHash(current.SecretHash, candidate):
			res = VerifyResult{Status: VerifyVerified}
			return current, stores.OpDelete
		}

		current.Attempts++
		if current.Attempts >= maxAttempts {
			res = VerifyResult{Status: VerifyLocked}
			return current, stores.OpDelete
		}
		res = VerifyResult{Status: VerifyInvalid, RemainingAttempts: maxAttempts - current.Attempts}
		return current, stores.OpPut
	})

	if s.metrics.LatencyEnabled() {
		s.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	s.metrics.Inc(verifyMetric(res.Status))

	var err error
	if res.Status == VerifyVerified {
		if resetErr := s.limiter.ResetIdentity(ctx, identity); resetErr != nil {
			s.logger.Warn("otp limiter reset failed", zap.String("identity", identity), zap.Error(resetErr))
		}
		err = s.attachReceipt(&res, identity, now)
	}

	s.emitVerifyAudit(ctx, identity, res, err)
	return res, err
}

// ParseReceipt validates a receipt returned by VerifyCode and returns its
// claims.
func (s *Service) ParseReceipt(token string) (ReceiptClaims, error) {
	if s.receipts == nil {
		return ReceiptClaims{}, ErrReceiptDisabled
	}

	claims, err := s.receipts.Parse(token, s.clock.Now())
	if err != nil {
		return ReceiptClaims{}, fmt.Errorf("%w: %v", ErrReceiptInvalid, err)
	}

	out := ReceiptClaims{
		ID:       claims.ID,
		Identity: claims.Identity(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// ActiveCodes returns the number of stored records, including expired ones
// the reaper has not swept yet.
func (s *Service) ActiveCodes() int {
	return s.store.Len()
}

// MetricsSnapshot returns the current counters. It is empty when metrics are
// disabled.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped counts audit events lost to a full buffer.
func (s *Service) AuditDropped() uint64 {
	return s.audit.Dropped()
}

// DeliveryDropped counts async deliveries that were never queued.
func (s *Service) DeliveryDropped() uint64 {
	return s.delivery.Dropped()
}

// Close stops the reaper and drains queued deliveries and audit events.
// Later calls to any operation return ErrServiceClosed. Close is idempotent.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.reaper.Stop()
		s.delivery.Close()
		s.audit.Close()
	})
}

func (s *Service) checkUsable(identity string) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	if identity == "" {
		return ErrInvalidIdentity
	}
	return nil
}

func (s *Service) newRecord(code string, now time.Time) stores.Record {
	return stores.Record{
		SecretHash: internal.HashOTP(code),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.config.Code.TTL),
		Attempts:   0,
	}
}

func (s *Service) sweep(now time.Time) int {
	return s.store.ForEachExpired(now, nil)
}

func (s *Service) attachReceipt(res *VerifyResult, identity string, now time.Time) error {
	if s.receipts == nil || !s.receipts.CanSign() {
		return nil
	}

	token, expiresAt, err := s.receipts.Issue(identity, now)
	if err != nil {
		s.metrics.Inc(MetricReceiptFailure)
		s.logger.Error("otp receipt signing failed", zap.String("identity", identity), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrReceiptUnavailable, err)
	}

	s.metrics.Inc(MetricReceiptIssued)
	res.Receipt = token
	res.ReceiptExpiresAt = expiresAt
	return nil
}

func (s *Service) mapLimiterError(ctx context.Context, operation, identity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiters.ErrRequestRateLimited):
		s.metrics.Inc(MetricRateLimitHit)
		s.emitAudit(ctx, AuditEvent{
			EventType: auditEventRateLimited,
			Identity:  identity,
			Success:   false,
			Error:     ErrRateLimited.Error(),
			Metadata:  map[string]string{"operation": operation},
		})
		return ErrRateLimited
	default:
		s.metrics.Inc(MetricLimiterUnavailable)
		s.logger.Warn("otp limiter unavailable", zap.String("operation", operation), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
}

func (s *Service) dispatchDelivery(ctx context.Context, identity, code string) {
	job := deliveryJob{identity: identity, code: code}

	if s.delivery == nil {
		s.runDelivery(ctx, job)
		return
	}
	if !s.delivery.Submit(ctx, job) {
		s.metrics.Inc(MetricDeliveryDropped)
		s.logger.Warn("otp delivery dropped", zap.String("identity", identity))
	}
}

func (s *Service) runDelivery(ctx context.Context, job deliveryJob) {
	dctx, cancel := deliveryContext(ctx, s.config.Delivery.Timeout)
	defer cancel()

	if err := s.deliverer.Deliver(dctx, job.identity, job.code); err != nil {
		s.metrics.Inc(MetricDeliveryFailure)
		s.logger.Warn("otp delivery failed", zap.String("identity", job.identity), zap.Error(err))
		s.emitAudit(ctx, AuditEvent{
			EventType: auditEventDeliveryFailure,
			Identity:  job.identity,
			Success:   false,
			Error:     err.Error(),
		})
	}
}

func verifyMetric(status VerifyStatus) MetricID {
	switch status {
	case VerifyVerified:
		return MetricVerifyVerified
	case VerifyExpired:
		return MetricVerifyExpired
	case VerifyInvalid:
		return MetricVerifyInvalid
	case VerifyLocked:
		return MetricVerifyLocked
	default:
		return MetricVerifyNotFound
	}
}
