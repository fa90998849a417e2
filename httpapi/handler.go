package httpapi

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RequestIDHeader is read from and echoed on every response.
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"

	actionRetry   = "retry"
	actionReissue = "reissue"
)

// Service is the subset of *goOTP.Service the handler needs.
type Service interface {
	IssueCode(ctx context.Context, identity string) (goOTP.IssueResult, error)
	ResendCode(ctx context.Context, identity string) (goOTP.IssueResult, error)
	VerifyCode(ctx context.Context, identity, code string) (goOTP.VerifyResult, error)
	ParseReceipt(token string) (goOTP.ReceiptClaims, error)
}

// Handler serves the OTP operations as JSON over gin.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New returns a Handler for svc. A nil logger is replaced by zap.NewNop.
func New(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type identityRequest struct {
	Identity string `json:"identity" binding:"required"`
}

type verifyRequest struct {
	Identity string `json:"identity" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

type receiptRequest struct {
	Receipt string `json:"receipt" binding:"required"`
}

// Register mounts the OTP routes under r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/otp", RequestID())
	g.POST("/issue", h.Issue)
	g.POST("/resend", h.Resend)
	g.POST("/verify", h.Verify)
	g.POST("/receipt", h.Receipt)
}

// RequestID assigns a request ID, reusing the caller's header when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (h *Handler) Issue(c *gin.Context) {
	h.issue(c, "issue", h.svc.IssueCode)
}

func (h *Handler) Resend(c *gin.Context) {
	h.issue(c, "resend", h.svc.ResendCode)
}

func (h *Handler) issue(c *gin.Context, op string, call func(context.Context, string) (goOTP.IssueResult, error)) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}

	res, err := call(h.requestContext(c), req.Identity)
	if err != nil {
		h.writeError(c, op, err)
		return
	}

	if res.Status == goOTP.IssueCooldown {
		secs := retryAfterSeconds(res.RetryAfter)
		c.Header("Retry-After", strconv.FormatInt(secs, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"status":      res.Status.String(),
			"retry_after": secs,
		})
		return
	}

	body := gin.H{
		"status":     res.Status.String(),
		"expires_at": res.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if op == "resend" {
		body["replaced"] = res.Replaced
	}
	c.JSON(http.StatusAccepted, body)
}

func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity and code are required"})
		return
	}

	res, err := h.svc.VerifyCode(h.requestContext(c), req.Identity, req.Code)
	if err != nil && !(res.Verified() && errors.Is(err, goOTP.ErrReceiptUnavailable)) {
		h.writeError(c, "verify", err)
		return
	}

	switch {
	case res.Verified():
		body := gin.H{"status": res.Status.String()}
		if res.Receipt != "" {
			body["receipt"] = res.Receipt
			body["receipt_expires_at"] = res.ReceiptExpiresAt.UTC().Format(time.RFC3339)
		}
		if err != nil {
			h.logger.Warn("otp receipt unavailable", zap.String(requestIDKey, c.GetString(requestIDKey)), zap.Error(err))
		}
		c.JSON(http.StatusOK, body)
	case res.NeedsReissue():
		c.JSON(http.StatusGone, gin.H{
			"status": res.Status.String(),
			"action": actionReissue,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"status":             res.Status.String(),
			"action":             actionRetry,
			"remaining_attempts": res.RemainingAttempts,
		})
	}
}

func (h *Handler) Receipt(c *gin.Context) {
	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt is required"})
		return
	}

	claims, err := h.svc.ParseReceipt(req.Receipt)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"id":         claims.ID,
			"identity":   claims.Identity,
			"issued_at":  claims.IssuedAt.UTC().Format(time.RFC3339),
			"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, goOTP.ErrReceiptInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid receipt"})
	case errors.Is(err, goOTP.ErrReceiptDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": "receipts disabled"})
	default:
		h.writeError(c, "receipt", err)
	}
}

func (h *Handler) requestContext(c *gin.Context) context.Context {
	return goOTP.WithClientIP(c.Request.Context(), c.ClientIP())
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, goOTP.ErrInvalidIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity"})
	case errors.Is(err, goOTP.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try later"})
	default:
		h.logger.Error("otp request failed",
			zap.String("op", op),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	}
}

func retryAfterSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
