package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"xquest/internal/model"
	"xquest/pkg/logger"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishTimeout    = 5 * time.Second
	defaultRetryDelay = 2 * time.Second
)

var ErrNotConnected = errors.New("rabbitmq: not connected")

type AMQPConfig struct {
	URL        string        `mapstructure:"url"`
	Exchange   string        `mapstructure:"exchange"`
	RetryDelay time.Duration `mapstructure:"retryDelay"`
}

// AMQPPublisher sends quest events to a topic exchange, routed by event type.
// When the broker connection drops it redials in the background; publishes
// in the meantime fail with ErrNotConnected.
type AMQPPublisher struct {
	url        string
	exchange   string
	retryDelay time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  chan *amqp.Error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAMQPPublisher connects once up front so a bad URL fails startup, then
// keeps the connection alive until Close.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	p := newAMQPPublisher(cfg)

	if err := p.connect(); err != nil {
		return nil, err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reconnectLoop()
	}()

	return p, nil
}

func newAMQPPublisher(cfg AMQPConfig) *AMQPPublisher {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "quests"
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	return &AMQPPublisher{
		url:        cfg.URL,
		exchange:   exchange,
		retryDelay: retryDelay,
		done:       make(chan struct{}),
	}
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = ch
	p.closed = conn.NotifyClose(make(chan *amqp.Error, 1))
	p.mu.Unlock()

	return nil
}

func (p *AMQPPublisher) reconnectLoop() {
	log := logger.Logger()

	for {
		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()

		select {
		case <-p.done:
			return
		case amqpErr := <-closed:
			log.Warn("rabbitmq connection lost", zap.Any("reason", amqpErr))
		}

		p.mu.Lock()
		p.conn = nil
		p.channel = nil
		p.mu.Unlock()

		for {
			select {
			case <-p.done:
				return
			case <-time.After(p.retryDelay):
			}

			if err := p.connect(); err != nil {
				log.Warn("rabbitmq reconnect failed", zap.Error(err))
				continue
			}
			log.Info("rabbitmq connection restored", zap.String("exchange", p.exchange))
			break
		}
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event model.QuestEvent) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return ErrNotConnected
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey(event), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	return nil
}

// Close stops reconnecting and closes the current connection, if any.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}

	err := p.conn.Close()
	p.conn = nil
	p.channel = nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

func routingKey(event model.QuestEvent) string {
	return "quest." + string(event.Type)
}

func newPublishing(event model.QuestEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal quest event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	}, nil
}
