package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	q "github.com/gecilind/University-Management-System/internal/queue"
)

// EventPublisher delivers session events. Publishing is best effort:
// callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, ev q.SessionEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.SessionEvent) error { return nil }

const defaultDialTimeout = 5 * time.Second

// AMQPPublisher publishes persistent JSON messages to the session queue
// over a lazily dialed connection. A failed publish drops the connection so
// the next call redials.
type AMQPPublisher struct {
	URL string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// Publish sends ev on the session queue. Connecting honours the deadline of
// ctx, so a broker that accepts TCP but never answers costs at most that
// long.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.SessionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		"",                 // default exchange
		q.SessionQueueName, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("dial: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(q.SessionQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// ErrEventQueueFull is returned by AsyncPublisher when its buffer is full.
var ErrEventQueueFull = errors.New("session event queue full")

// AsyncPublisher hands events to a single background goroutine that
// delivers them through Next. Publish never blocks: when the buffer is full
// the event is dropped and ErrEventQueueFull returned.
type AsyncPublisher struct {
	Next    EventPublisher
	Timeout time.Duration
	Log     *logrus.Logger

	mu     sync.RWMutex
	closed bool
	events chan q.SessionEvent
	done   chan struct{}
}

// NewAsyncPublisher starts the delivery goroutine. Each delivery gets
// timeout; Close drains what is buffered and stops it.
func NewAsyncPublisher(next EventPublisher, size int, timeout time.Duration, log *logrus.Logger) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	p := &AsyncPublisher{
		Next:    next,
		Timeout: timeout,
		Log:     log,
		events:  make(chan q.SessionEvent, size),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) Publish(_ context.Context, ev q.SessionEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrEventQueueFull
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// Close stops accepting events and waits for buffered ones to be delivered.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
		if err := p.Next.Publish(ctx, ev); err != nil && p.Log != nil {
			p.Log.WithError(err).WithField("event", ev.Type).Warn("deliver session event failed")
		}
		cancel()
	}
}

func newEvent(typ string, now time.Time) q.SessionEvent {
	return q.SessionEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}
}
