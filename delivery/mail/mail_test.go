package mail

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	mu       sync.Mutex
	messages []*gomail.Message
	err      error
	block    chan struct{}
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m...)
	return s.err
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestDeliverBuildsMessage(t *testing.T) {
	sender := &captureSender{}
	d := NewWithSender(sender, Config{From: "noreply@example.com", CodeTTL: 5 * time.Minute})

	require.NoError(t, d.Deliver(context.Background(), "a@b.com", "482913"))
	require.Len(t, sender.messages, 1)

	m := sender.messages[0]
	assert.Equal(t, []string{"a@b.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"noreply@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Your verification code"}, m.GetHeader("Subject"))

	body := render(t, m)
	assert.Contains(t, body, "482913")
	assert.Contains(t, body, "5 minutes")
	assert.Contains(t, body, "text/html")
}

func TestDeliverRejectsNonEmailIdentity(t *testing.T) {
	sender := &captureSender{}
	d := NewWithSender(sender, Config{From: "noreply@example.com"})

	err := d.Deliver(context.Background(), "not an address", "482913")
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.Empty(t, sender.messages)
}

func TestDeliverWrapsSendError(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	d := NewWithSender(sender, Config{From: "noreply@example.com"})

	err := d.Deliver(context.Background(), "a@b.com", "482913")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDeliverHonorsContext(t *testing.T) {
	sender := &captureSender{block: make(chan struct{})}
	defer close(sender.block)
	d := NewWithSender(sender, Config{From: "noreply@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Deliver(ctx, "a@b.com", "482913")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	assert.ErrorIs(t, d.Deliver(cancelled, "a@b.com", "482913"), context.Canceled)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "5 minutes", humanDuration(5*time.Minute))
	assert.Equal(t, "1m30s", humanDuration(90*time.Second))
}
