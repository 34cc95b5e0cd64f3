package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/olhodeaguia/scan-service/internal/domain/port"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler processes one scan request body. A *port.RetryError
// redelivers the message after a backoff that grows with its Attempt; any
// other error is redelivered as a first attempt; nil acks it.
type MessageHandler func(ctx context.Context, body []byte) error

type ConsumerConfig struct {
	URL         string
	Topology    Topology
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

// Consumer feeds scan requests to a fixed pool of workers with manual acks.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	workers int
	backoff backoff
	handler MessageHandler
	logger  *zap.Logger

	// sleep waits for d or until ctx ends, reporting whether d elapsed.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewConsumer dials RabbitMQ, declares the scan topology and applies the
// prefetch limit. Deliveries start flowing on Start.
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	setup := func() error {
		if err := cfg.Topology.Declare(ch); err != nil {
			return err
		}
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
		return nil
	}
	if err := setup(); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	c := newConsumer(handler, logger, cfg.WorkerCount, time.Duration(cfg.BaseDelayMs)*time.Millisecond)
	c.conn = conn
	c.channel = ch
	c.queue = cfg.Topology.RequestQueue
	return c, nil
}

func newConsumer(handler MessageHandler, logger *zap.Logger, workers int, baseDelay time.Duration) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		workers: workers,
		backoff: backoff{base: baseDelay, max: time.Minute},
		handler: handler,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Start consumes until ctx ends and returns once every in-flight request
// has been settled.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("scan workers starting", zap.Int("workers", c.workers), zap.String("queue", c.queue))
	c.run(ctx, deliveries)
	c.logger.Info("scan workers stopped")
	return nil
}

func (c *Consumer) run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(log *zap.Logger) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						log.Info("delivery channel closed")
						return
					}
					c.settle(ctx, d, c.handler(ctx, d.Body), log)
				}
			}
		}(c.logger.With(zap.Int("worker_id", i)))
	}
	wg.Wait()
}

// settle acks a handled request or requeues it after the backoff for its
// attempt. A request interrupted by shutdown is requeued at once.
func (c *Consumer) settle(ctx context.Context, d amqp.Delivery, err error, log *zap.Logger) {
	if err == nil {
		_ = d.Ack(false)
		return
	}

	attempt := 1
	var retry *port.RetryError
	if errors.As(err, &retry) && retry.Attempt > 0 {
		attempt = retry.Attempt
	}
	delay := c.backoff.delay(attempt)

	log.Warn("scan request failed, requeueing after backoff",
		zap.Error(err),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Bool("redelivered", d.Redelivered),
	)

	c.sleep(ctx, delay)
	_ = d.Nack(false, true)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
