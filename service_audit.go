package goOTP

import (
	"context"
	"strconv"
)

func (s *Service) emitAudit(ctx context.Context, event AuditEvent) {
	if s.audit == nil {
		return
	}
	event.Timestamp = s.clock.Now()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	s.audit.Submit(ctx, event)
}

func (s *Service) emitIssueAudit(ctx context.Context, eventType, identity string, res IssueResult) {
	if s.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		Identity:  identity,
		Success:   res.Status == IssueOK,
		Status:    res.Status.String(),
	}
	if err := res.Err(); err != nil {
		event.Error = err.Error()
	}
	if res.Replaced {
		event.Metadata = map[string]string{"replaced": "true"}
	}
	s.emitAudit(ctx, event)
}

func (s *Service) emitVerifyAudit(ctx context.Context, identity string, res VerifyResult, err error) {
	if s.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: auditEventVerify,
		Identity:  identity,
		Success:   res.Verified(),
		Status:    res.Status.String(),
	}
	switch {
	case err != nil:
		event.Error = err.Error()
	case res.Err() != nil:
		event.Error = res.Err().Error()
	}
	if res.Status == VerifyInvalid {
		event.Metadata = map[string]string{"remaining_attempts": strconv.Itoa(res.RemainingAttempts)}
	}
	s.emitAudit(ctx, event)
}
