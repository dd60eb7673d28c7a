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

	"quillpress/internal/metrics"
)

func TestSMTPSender_Message(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", "587", "", "", "QuillPress <no-reply@example.com>")
	require.NoError(t, err)

	var got *gomail.Message
	s.send = func(m *gomail.Message) error {
		got = m
		return nil
	}

	err = s.Send(context.Background(), Message{
		To:      "reader@example.com",
		Subject: "Hello\r\nBcc: evil@example.com",
		Body:    "line one\nline two",
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, []string{"QuillPress <no-reply@example.com>"}, got.GetHeader("From"))
	assert.Equal(t, []string{"reader@example.com"}, got.GetHeader("To"))
	assert.Equal(t, []string{"HelloBcc: evil@example.com"}, got.GetHeader("Subject"))
	assert.Empty(t, got.GetHeader("Bcc"))

	var buf bytes.Buffer
	_, err = got.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/plain")
	assert.Contains(t, buf.String(), "line two")
}

func TestSMTPSender_BadPort(t *testing.T) {
	_, err := NewSMTPSender("smtp.example.com", "smtp", "", "", "a@example.com")
	assert.Error(t, err)
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", "587", "", "", "a@example.com")
	require.NoError(t, err)
	s.send = func(*gomail.Message) error {
		t.Fatal("send must not be called")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "x@example.com"}), context.Canceled)
}

func TestSMTPSender_WrapsFailure(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", "587", "user", "pass", "a@example.com")
	require.NoError(t, err)
	relay := errors.New("454 relay access denied")
	s.send = func(*gomail.Message) error { return relay }
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: "x@example.com"}), relay)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "a@example.com"}))
}

// recordingSender fails the first failures calls and records every delivery.
type recordingSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failures {
		return errors.New("relay unavailable")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) snapshot() (int, []Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, append([]Message(nil), r.sent...)
}

func closeQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
}

func TestQueue_DeliversAndDrainsOnClose(t *testing.T) {
	sender := &recordingSender{}
	m := metrics.New()
	q := NewQueue(sender, QueueOptions{Workers: 2, Metrics: m})

	for i := range 5 {
		require.NoError(t, q.Enqueue(Message{To: "user" + string(rune('a'+i)) + "@example.com"}))
	}
	closeQueue(t, q)

	_, sent := sender.snapshot()
	assert.Len(t, sent, 5)
}

func TestQueue_RetriesUntilSuccess(t *testing.T) {
	sender := &recordingSender{failures: 2}
	q := NewQueue(sender, QueueOptions{Workers: 1, MaxAttempts: 3, Backoff: time.Millisecond})

	require.NoError(t, q.Send(context.Background(), Message{To: "a@example.com"}))
	closeQueue(t, q)

	calls, sent := sender.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, sent, 1)
}

func TestQueue_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &recordingSender{failures: 10}
	q := NewQueue(sender, QueueOptions{Workers: 1, MaxAttempts: 2, Backoff: time.Millisecond})

	require.NoError(t, q.Enqueue(Message{To: "a@example.com"}))
	closeQueue(t, q)

	calls, sent := sender.snapshot()
	assert.Equal(t, 2, calls)
	assert.Empty(t, sent)
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := NewQueue(&recordingSender{}, QueueOptions{})
	closeQueue(t, q)
	assert.ErrorIs(t, q.Enqueue(Message{To: "a@example.com"}), ErrQueueClosed)
}

// blockingSender holds every delivery until release is closed.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSender) Send(context.Context, Message) error {
	b.started <- struct{}{}
	<-b.release
	return nil
}

func TestQueue_FullBufferDrops(t *testing.T) {
	b := &blockingSender{started: make(chan struct{}, 1), release: make(chan struct{})}
	q := NewQueue(b, QueueOptions{Workers: 1, Buffer: 1})

	require.NoError(t, q.Enqueue(Message{To: "first@example.com"}))
	<-b.started // the worker holds the first message
	require.NoError(t, q.Enqueue(Message{To: "second@example.com"}))
	assert.ErrorIs(t, q.Enqueue(Message{To: "third@example.com"}), ErrQueueFull)

	close(b.release)
	// drain the second delivery's start signal
	go func() {
		for range b.started {
		}
	}()
	closeQueue(t, q)
	close(b.started)
}
