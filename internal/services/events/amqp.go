package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/evn/dstracker/internal/models"
)

const (
	RoutingShiftStarted = "shift.started"
	RoutingShiftEnded   = "shift.ended"

	publishTimeout = 5 * time.Second
)

// ShiftMessage: тело сообщения о смене для внешних потребителей (расчёт зарплаты и т.п.).
type ShiftMessage struct {
	Event   string             `json:"event"`
	Session models.WorkSession `json:"session"`
	SentAt  time.Time          `json:"sent_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher отправляет события смен в topic-exchange RabbitMQ.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	mu       sync.Mutex
	now      func() time.Time
}

func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}
}

func (p *Publisher) publish(routingKey string, s models.WorkSession) {
	body, err := json.Marshal(ShiftMessage{Event: routingKey, Session: s, SentAt: p.now().UTC()})
	if err != nil {
		log.Printf("events: marshal %s: %v", routingKey, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
	})
	if err != nil {
		log.Printf("⚠️ events: publish %s for session %d: %v", routingKey, s.ID, err)
	}
}

func (p *Publisher) ShiftStarted(s models.WorkSession) {
	p.publish(RoutingShiftStarted, s)
}

func (p *Publisher) ShiftEnded(s models.WorkSession) {
	p.publish(RoutingShiftEnded, s)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
