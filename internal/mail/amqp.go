package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultDialTimeout = 5 * time.Second

// AMQPConfig holds broker settings for AMQPMailer.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPMailer hands messages to a mail worker through RabbitMQ. Send returns only once
// the broker has confirmed the message was routed to a queue.
type AMQPMailer struct {
	cfg AMQPConfig

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

// NewAMQPMailer builds the mailer; the connection is opened on first Send.
func NewAMQPMailer(cfg AMQPConfig) *AMQPMailer {
	return &AMQPMailer{cfg: cfg}
}

func (m *AMQPMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnected(ctx); err != nil {
		return err
	}

drain:
	for {
		select {
		case <-m.confirmCh:
		case <-m.returnCh:
		default:
			break drain
		}
	}

	if err := m.ch.PublishWithContext(ctx, m.cfg.Exchange, m.cfg.RoutingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		m.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}

	// The broker sends basic.return before the ack for unroutable mandatory messages.
	select {
	case ret := <-m.returnCh:
		return fmt.Errorf("amqp unroutable: key=%s code=%d text=%s", m.cfg.RoutingKey, ret.ReplyCode, ret.ReplyText)
	case conf, ok := <-m.confirmCh:
		if !ok {
			m.reset()
			return errors.New("amqp channel closed before confirm")
		}
		select {
		case ret := <-m.returnCh:
			return fmt.Errorf("amqp unroutable: key=%s code=%d text=%s", m.cfg.RoutingKey, ret.ReplyCode, ret.ReplyText)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("amqp nack: key=%s tag=%d", m.cfg.RoutingKey, conf.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		m.reset()
		return fmt.Errorf("amqp confirm: %w", ctx.Err())
	}
}

// Close tears down the broker connection.
func (m *AMQPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func (m *AMQPMailer) ensureConnected(ctx context.Context) error {
	if m.conn != nil && !m.conn.IsClosed() && m.ch != nil && !m.ch.IsClosed() {
		return nil
	}
	m.reset()

	dialTimeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
		if dialTimeout <= 0 {
			return fmt.Errorf("amqp dial: %w", context.DeadlineExceeded)
		}
	}
	conn, err := amqp.DialConfig(m.cfg.URL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(m.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp exchange declare: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp confirm mode: %w", err)
	}

	m.conn = conn
	m.ch = ch
	m.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	m.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	return nil
}

func (m *AMQPMailer) reset() {
	if m.ch != nil {
		_ = m.ch.Close()
		m.ch = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}
