package sender

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"placeclaim/internal/verification/metrics"
	"placeclaim/pkg/platform/privacy"
	"placeclaim/pkg/requestcontext"
)

const (
	DefaultQueueSize    = 256
	DefaultWorkers      = 4
	DefaultMaxPerSecond = 10
	defaultSendTimeout  = 10 * time.Second
)

type message struct {
	to        string
	body      string
	requestID string
}

// Dispatcher queues SMS messages and delivers them from a small worker pool,
// throttled to the provider's rate. Delivery outcomes are logged and counted
// but never reported back to the caller.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	queue   chan message
	workers int
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	stopped chan struct{}
}

type DispatcherOption func(*Dispatcher)

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan message, n)
		}
	}
}

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxPerSecond caps provider calls per second across all workers.
func WithMaxPerSecond(perSecond float64) DispatcherOption {
	return func(d *Dispatcher) {
		if perSecond > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
		}
	}
}

func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(sender Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(DefaultMaxPerSecond), DefaultMaxPerSecond),
		queue:   make(chan message, DefaultQueueSize),
		workers: DefaultWorkers,
		timeout: defaultSendTimeout,
		logger:  slog.Default(),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for range d.workers {
		d.wg.Add(1)
		go d.run()
	}
}

// Dispatch queues a message. It returns false, without blocking, when the
// queue is full or the dispatcher is shutting down.
func (d *Dispatcher) Dispatch(ctx context.Context, to, body string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, to, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- message{to: to, body: body, requestID: requestcontext.RequestID(ctx)}:
		if d.metrics != nil {
			d.metrics.SMSQueued.Inc()
		}
		return true
	default:
		d.drop(ctx, to, "queue full")
		return false
	}
}

// Stop stops accepting messages and waits for queued ones to be sent or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
		go func() {
			d.wg.Wait()
			close(d.stopped)
		}()
	}
	d.mu.Unlock()

	select {
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		if d.metrics != nil {
			d.metrics.SMSQueued.Dec()
		}
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.logger.WarnContext(ctx, "sms throttled past send timeout",
			"to", privacy.MaskPhone(msg.to),
			"request_id", msg.requestID,
		)
		if d.metrics != nil {
			d.metrics.SMSFailed.Inc()
		}
		return
	}

	if err := d.sender.SendSMS(ctx, msg.to, msg.body); err != nil {
		d.logger.ErrorContext(ctx, "sms delivery failed",
			"error", err,
			"to", privacy.MaskPhone(msg.to),
			"request_id", msg.requestID,
		)
		if d.metrics != nil {
			d.metrics.SMSFailed.Inc()
		}
		return
	}
	d.logger.InfoContext(ctx, "sms delivered",
		"to", privacy.MaskPhone(msg.to),
		"request_id", msg.requestID,
	)
	if d.metrics != nil {
		d.metrics.SMSDelivered.Inc()
	}
}

func (d *Dispatcher) drop(ctx context.Context, to, reason string) {
	d.logger.WarnContext(ctx, "sms dropped",
		"reason", reason,
		"to", privacy.MaskPhone(to),
		"request_id", requestcontext.RequestID(ctx),
	)
	if d.metrics != nil {
		d.metrics.SMSDropped.Inc()
	}
}
