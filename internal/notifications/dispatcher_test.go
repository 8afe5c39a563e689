package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/pkg/mail"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
	block    chan struct{}
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func TestNewDispatcherRequiresMailer(t *testing.T) {
	_, err := NewDispatcher(nil, Options{})
	require.Error(t, err)
}

func TestSynchronousDispatchDelivers(t *testing.T) {
	mailer := &recordingMailer{}
	d, err := NewDispatcher(mailer, Options{})
	require.NoError(t, err)
	require.False(t, d.Async())

	n := ConfirmationEmail("a@b.com", "A B", "https://lms.test/api/auth/confirm-email?userId=1&token=t")
	require.NoError(t, d.Dispatch(context.Background(), n))

	sent := mailer.sent()
	require.Len(t, sent, 1)
	require.Equal(t, []string{"a@b.com"}, sent[0].To)
	require.Equal(t, "Confirm your Upskeel account", sent[0].Subject)
	require.Contains(t, sent[0].Body, "token=t")
	require.Contains(t, sent[0].HTMLBody, "Hello A B")
}

func TestSynchronousDispatchReturnsDeliveryError(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d, err := NewDispatcher(mailer, Options{})
	require.NoError(t, err)

	err = d.Dispatch(context.Background(), PasswordResetEmail("a@b.com", "", "https://x"))
	require.EqualError(t, err, "smtp down")
}

func TestDisabledSMTPIsNotAnError(t *testing.T) {
	mailer := &recordingMailer{err: mail.ErrSMTPDisabled}
	d, err := NewDispatcher(mailer, Options{})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(context.Background(), PasswordResetEmail("a@b.com", "", "https://x")))
}

func TestDispatchRequiresRecipient(t *testing.T) {
	d, err := NewDispatcher(&recordingMailer{}, Options{})
	require.NoError(t, err)
	require.Error(t, d.Dispatch(context.Background(), Notification{Kind: KindPasswordReset}))
}

func TestAsyncDispatchDrainsOnStop(t *testing.T) {
	mailer := &recordingMailer{}
	d, err := NewDispatcher(mailer, Options{Workers: 2, QueueSize: 10})
	require.NoError(t, err)

	require.ErrorIs(t, d.Dispatch(context.Background(), InstructorDecisionEmail("a@b.com", "A", true)), ErrNotRunning)

	d.Start()
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Dispatch(context.Background(), InstructorDecisionEmail("a@b.com", "A", i%2 == 0)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.Len(t, mailer.sent(), 5)

	require.ErrorIs(t, d.Dispatch(context.Background(), InstructorDecisionEmail("a@b.com", "A", true)), ErrNotRunning)
}

func TestAsyncDispatchDropsWhenQueueFull(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	d, err := NewDispatcher(mailer, Options{Workers: 1, QueueSize: 1})
	require.NoError(t, err)
	d.Start()

	n := InstructorDecisionEmail("a@b.com", "A", false)
	// first message occupies the worker, second fills the queue
	require.NoError(t, d.Dispatch(context.Background(), n))
	require.Eventually(t, func() bool { return d.QueueDepth() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Dispatch(context.Background(), n))

	require.ErrorIs(t, d.Dispatch(context.Background(), n), ErrQueueFull)
	require.ErrorIs(t, d.Check(context.Background()), ErrQueueFull)

	close(mailer.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.Len(t, mailer.sent(), 2)
}

func TestTemplatesEscapeHTML(t *testing.T) {
	n := ConfirmationEmail("a@b.com", "<script>alert(1)</script>", "https://lms.test/confirm?userId=1&token=abc")
	require.False(t, strings.Contains(n.HTMLBody, "<script>"))
	require.Contains(t, n.HTMLBody, "&lt;script&gt;")

	rejected := InstructorDecisionEmail("a@b.com", "", false)
	require.Equal(t, "Your instructor request was rejected", rejected.Subject)
	require.Contains(t, rejected.HTMLBody, "Hello there")
	require.Equal(t, KindInstructorDecision, rejected.Kind)
}
