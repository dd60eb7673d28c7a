package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"quillpress/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("mail: queue closed")

// ErrQueueFull is returned when the buffer has no room. The message is
// dropped and logged.
var ErrQueueFull = errors.New("mail: queue full")

type task struct {
	msg     Message
	attempt int
}

// Queue delivers messages through a Sender with a fixed pool of workers.
// Failed deliveries are retried with a linear backoff up to MaxAttempts.
type Queue struct {
	sender      Sender
	tasks       chan task
	workers     int
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	metrics     *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup // workers
	pending sync.WaitGroup // messages not yet sent or given up on
}

// QueueOptions tunes a Queue. Zero values get defaults.
type QueueOptions struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     time.Duration
	SendTimeout time.Duration
	Metrics     *metrics.Metrics
}

// NewQueue starts the workers and returns the queue.
func NewQueue(sender Sender, opts QueueOptions) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 2
	}
	if opts.Buffer < 1 {
		opts.Buffer = 100
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}

	q := &Queue{
		sender:      sender,
		tasks:       make(chan task, opts.Buffer),
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		timeout:     opts.SendTimeout,
		metrics:     opts.Metrics,
	}
	for i := range q.workers {
		q.wg.Add(1)
		go q.worker(i)
	}
	slog.Info("mail queue started", "workers", q.workers)
	return q
}

// Enqueue schedules msg for delivery without blocking.
func (q *Queue) Enqueue(msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.pending.Add(1)
	return q.push(task{msg: msg, attempt: 1})
}

// Send makes Queue usable wherever a Sender is expected. Delivery is
// asynchronous, so a nil error means the message was queued.
func (q *Queue) Send(_ context.Context, msg Message) error {
	return q.Enqueue(msg)
}

// push hands t to the workers. The channel stays open while t is pending.
func (q *Queue) push(t task) error {
	select {
	case q.tasks <- t:
		return nil
	default:
		slog.Error("mail queue full, dropping message", "to", t.msg.To, "subject", t.msg.Subject)
		q.metrics.MailResult("failed")
		q.pending.Done()
		return ErrQueueFull
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.deliver(id, t)
	}
}

func (q *Queue) deliver(id int, t task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	err := q.sender.Send(ctx, t.msg)
	cancel()
	if err == nil {
		q.metrics.MailResult("sent")
		q.pending.Done()
		return
	}

	if t.attempt >= q.maxAttempts {
		slog.Error("mail delivery failed permanently",
			"worker", id, "to", t.msg.To, "subject", t.msg.Subject, "attempts", t.attempt, "error", err)
		q.metrics.MailResult("failed")
		q.pending.Done()
		return
	}

	slog.Warn("mail delivery failed, retrying",
		"worker", id, "to", t.msg.To, "attempt", t.attempt, "error", err)
	q.metrics.MailResult("retry")
	t.attempt++
	time.AfterFunc(time.Duration(t.attempt-1)*q.backoff, func() {
		_ = q.push(t)
	})
}

// Close stops accepting messages and waits until every queued message has
// been delivered or given up on, or until ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(q.tasks)
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
