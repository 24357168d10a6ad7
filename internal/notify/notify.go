// Package notify delivers outgoing mail in the background.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

// Message is one outgoing plain-text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender creates an SMTPSender. Credentials are optional.
func NewSMTPSender(host string, port int, user, password, from string) (*SMTPSender, error) {
	opts := []mail.Option{mail.WithPort(port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: from}, nil
}

// Send delivers msg over a fresh SMTP connection.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set to %s: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender only logs messages. Used when SMTP is not configured.
type LogSender struct{}

// Send logs msg at info level.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("mail not sent: smtp disabled")
	return nil
}

// Dispatcher queues messages and sends them from a fixed set of workers.
// Enqueue never blocks; when the queue is full the message is dropped.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	queue   chan Message
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
func NewDispatcher(sender Sender, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		sender:  sender,
		timeout: timeout,
		queue:   make(chan Message, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("to", msg.To).Msg("mail delivery failed")
	}
}

// Enqueue queues msg for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.Warn().Str("to", msg.To).Msg("mail dropped: dispatcher closed")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		log.Warn().Str("to", msg.To).Msg("mail dropped: queue full")
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be sent
// or for ctx to be done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
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
