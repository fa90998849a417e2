package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, svc Service) *gin.Engine {
	t.Helper()
	r := gin.New()
	New(svc, nil).Register(r)
	return r
}

func newRealService(t *testing.T, mutate func(*goOTP.Config)) (*goOTP.Service, *clock.Fake) {
	t.Helper()

	cfg := goOTP.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	svc, err := goOTP.New().
		WithConfig(cfg).
		WithClock(fc).
		WithCodeGenerator(goOTP.CodeGeneratorFunc(func() (string, error) { return "482913", nil })).
		Build()
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, fc
}

func post(t *testing.T, r http.Handler, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestIssueThenVerify(t *testing.T) {
	svc, _ := newRealService(t, nil)
	r := newTestRouter(t, svc)

	w, body := post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.NotContains(t, w.Body.String(), "482913")

	w, body = post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "482913"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verified", body["status"])
	assert.NotContains(t, body, "receipt")
}

func TestIssueCooldownSetsRetryAfter(t *testing.T) {
	svc, fc := newRealService(t, nil)
	r := newTestRouter(t, svc)

	w, _ := post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
	require.Equal(t, http.StatusAccepted, w.Code)

	fc.Advance(90 * time.Second)
	w, body := post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "cooldown", body["status"])
	assert.Equal(t, "210", w.Header().Get("Retry-After"))
	assert.Equal(t, float64(210), body["retry_after"])
}

func TestResendReportsReplaced(t *testing.T) {
	svc, _ := newRealService(t, nil)
	r := newTestRouter(t, svc)

	post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
	w, body := post(t, r, "/otp/resend", gin.H{"identity": "a@b.com"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, body["replaced"])
}

func TestVerifyInvalidThenLocked(t *testing.T) {
	svc, _ := newRealService(t, nil)
	r := newTestRouter(t, svc)

	post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})

	w, body := post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid", body["status"])
	assert.Equal(t, actionRetry, body["action"])
	assert.Equal(t, float64(2), body["remaining_attempts"])

	post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "000000"})
	w, body = post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "000000"})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "locked", body["status"])
	assert.Equal(t, actionReissue, body["action"])

	w, body = post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "482913"})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "not_found", body["status"])
}

func TestVerifyExpired(t *testing.T) {
	svc, fc := newRealService(t, nil)
	r := newTestRouter(t, svc)

	post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
	fc.Advance(5*time.Minute + time.Second)

	w, body := post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "482913"})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "expired", body["status"])
}

func TestVerifyReturnsReceiptThatParses(t *testing.T) {
	svc, _ := newRealService(t, func(c *goOTP.Config) {
		c.Receipt.Enabled = true
		c.Receipt.SigningMethod = "hs256"
		c.Receipt.PrivateKey = bytes.Repeat([]byte("k"), 32)
	})
	r := newTestRouter(t, svc)

	post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
	w, body := post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "482913"})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := body["receipt"].(string)
	require.NotEmpty(t, token)

	w, body = post(t, r, "/otp/receipt", gin.H{"receipt": token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.com", body["identity"])

	w, _ = post(t, r, "/otp/receipt", gin.H{"receipt": token + "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReceiptDisabled(t *testing.T) {
	svc, _ := newRealService(t, nil)
	r := newTestRouter(t, svc)

	w, _ := post(t, r, "/otp/receipt", gin.H{"receipt": "abc"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequestBodies(t *testing.T) {
	svc, _ := newRealService(t, nil)
	r := newTestRouter(t, svc)

	w, _ := post(t, r, "/otp/issue", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = post(t, r, "/otp/verify", gin.H{"identity": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	svc, _ := newRealService(t, nil)
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/otp/issue", bytes.NewReader([]byte(`{"identity":"a@b.com"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

type stubService struct {
	issueErr  error
	verifyRes goOTP.VerifyResult
	verifyErr error
}

func (s *stubService) IssueCode(context.Context, string) (goOTP.IssueResult, error) {
	return goOTP.IssueResult{}, s.issueErr
}

func (s *stubService) ResendCode(ctx context.Context, identity string) (goOTP.IssueResult, error) {
	return s.IssueCode(ctx, identity)
}

func (s *stubService) VerifyCode(context.Context, string, string) (goOTP.VerifyResult, error) {
	return s.verifyRes, s.verifyErr
}

func (s *stubService) ParseReceipt(string) (goOTP.ReceiptClaims, error) {
	return goOTP.ReceiptClaims{}, errors.New("boom")
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid identity", goOTP.ErrInvalidIdentity, http.StatusBadRequest},
		{"rate limited", goOTP.ErrRateLimited, http.StatusTooManyRequests},
		{"limiter unavailable", goOTP.ErrLimiterUnavailable, http.StatusServiceUnavailable},
		{"closed", goOTP.ErrServiceClosed, http.StatusServiceUnavailable},
		{"generation", goOTP.ErrCodeGeneration, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, &stubService{issueErr: tc.err, verifyErr: tc.err})

			w, _ := post(t, r, "/otp/issue", gin.H{"identity": "a@b.com"})
			assert.Equal(t, tc.want, w.Code)
			w, _ = post(t, r, "/otp/resend", gin.H{"identity": "a@b.com"})
			assert.Equal(t, tc.want, w.Code)
			w, _ = post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "1"})
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestVerifiedWithoutReceiptStillSucceeds(t *testing.T) {
	r := newTestRouter(t, &stubService{
		verifyRes: goOTP.VerifyResult{Status: goOTP.VerifyVerified},
		verifyErr: goOTP.ErrReceiptUnavailable,
	})

	w, body := post(t, r, "/otp/verify", gin.H{"identity": "a@b.com", "code": "482913"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "verified", body["status"])
}

func TestReceiptBackendFailure(t *testing.T) {
	r := newTestRouter(t, &stubService{})

	w, _ := post(t, r, "/otp/receipt", gin.H{"receipt": "abc"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
