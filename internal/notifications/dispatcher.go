package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/mail"
	"github.com/upskeel/lms/pkg/metrics"
)

const defaultSendTimeout = 15 * time.Second

var (
	// ErrQueueFull is returned when the asynchronous queue cannot accept more work.
	ErrQueueFull = errors.New("notifications: queue full")
	// ErrNotRunning is returned when an asynchronous dispatcher is used before Start or after Stop.
	ErrNotRunning = errors.New("notifications: dispatcher not running")
)

// Options configures the Dispatcher. Workers == 0 delivers synchronously.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher hands notifications to a mail.Mailer, either inline or through a
// bounded worker pool.
type Dispatcher struct {
	mailer mail.Mailer
	opts   Options
	log    *zap.Logger

	mu      sync.RWMutex
	queue   chan Notification
	running bool
	wg      sync.WaitGroup
}

// NewDispatcher constructs a dispatcher delivering through mailer.
func NewDispatcher(mailer mail.Mailer, opts Options) (*Dispatcher, error) {
	if mailer == nil {
		return nil, errors.New("notifications: mailer is required")
	}
	if opts.Workers < 0 {
		opts.Workers = 0
	}
	if opts.Workers > 0 && opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &Dispatcher{
		mailer: mailer,
		opts:   opts,
		log:    logger.WithModule("notifications"),
	}, nil
}

// Async reports whether deliveries are queued for background workers.
func (d *Dispatcher) Async() bool {
	return d.opts.Workers > 0
}

// Start launches the worker pool. It is a no-op for synchronous dispatchers.
func (d *Dispatcher) Start() {
	if !d.Async() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	d.queue = make(chan Notification, d.opts.QueueSize)
	d.running = true
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(d.queue)
	}
	d.log.Info("notification workers started", zap.Int("workers", d.opts.Workers), zap.Int("queue_size", d.opts.QueueSize))
}

// Stop closes the queue and waits for queued notifications to drain or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch delivers n. Synchronous dispatchers return the delivery error;
// asynchronous ones only report whether the notification was queued.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.Recipient) == "" {
		return errors.New("notifications: recipient is required")
	}

	if !d.Async() {
		return d.deliver(ctx, n)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrNotRunning
	}

	select {
	case d.queue <- n:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.Notifications.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.log.Warn("notification queue full, dropping message", zap.String("kind", string(n.Kind)))
		return ErrQueueFull
	}
}

// QueueDepth returns the number of queued notifications.
func (d *Dispatcher) QueueDepth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.queue == nil {
		return 0
	}
	return len(d.queue)
}

// Check reports an error when the asynchronous pipeline cannot accept work.
func (d *Dispatcher) Check(context.Context) error {
	if !d.Async() {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrNotRunning
	}
	if len(d.queue) >= cap(d.queue) {
		return ErrQueueFull
	}
	return nil
}

func (d *Dispatcher) worker(queue <-chan Notification) {
	defer d.wg.Done()
	for n := range queue {
		metrics.NotificationQueueDepth.Set(float64(len(queue)))
		_ = d.deliver(context.Background(), n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	err := d.mailer.Send(ctx, mail.Message{
		To:       []string{n.Recipient},
		Subject:  n.Subject,
		Body:     n.Body,
		HTMLBody: n.HTMLBody,
	})
	switch {
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.Notifications.WithLabelValues(string(n.Kind), "skipped").Inc()
		d.log.Debug("smtp disabled, notification not sent", zap.String("kind", string(n.Kind)))
		return nil
	case err != nil:
		metrics.Notifications.WithLabelValues(string(n.Kind), "failed").Inc()
		d.log.Warn("notification delivery failed", zap.String("kind", string(n.Kind)), zap.Error(err))
		return err
	default:
		metrics.Notifications.WithLabelValues(string(n.Kind), "sent").Inc()
		return nil
	}
}
