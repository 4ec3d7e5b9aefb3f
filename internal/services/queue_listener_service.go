package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	amqpLib "github.com/streadway/amqp"

	"github.com/benmeehan/device-simulator/internal/constants"
	"github.com/benmeehan/device-simulator/internal/metrics"
	"github.com/benmeehan/device-simulator/internal/models"
	"github.com/benmeehan/device-simulator/pkg/amqp"
)

// MessageHandler is invoked on the consumer goroutine for every delivery.
type MessageHandler func(msg models.InboundMessage)

// NewPrintMessageHandler returns the default handler, which logs the body as text.
func NewPrintMessageHandler(logger zerolog.Logger) MessageHandler {
	return func(msg models.InboundMessage) {
		logger.Info().Str("queue", msg.Queue).Msgf("Received message: %s", msg.Text())
	}
}

// QueueListenerService consumes the device's queue and hands every message to a handler.
// Messages are acknowledged automatically on delivery.
type QueueListenerService struct {
	// Configuration fields
	queue       string
	consumerTag string
	durable     bool
	reconnect   bool
	baseDelay   time.Duration
	maxDelay    time.Duration

	// Dependencies
	broker   amqp.Broker
	handler  MessageHandler
	recorder *metrics.Recorder
	logger   zerolog.Logger

	// Internal state management
	state  *serviceState
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewQueueListenerService creates a new QueueListenerService. A nil handler logs each message.
func NewQueueListenerService(queue, consumerTag string, durable, reconnect bool, baseDelay, maxDelay time.Duration,
	broker amqp.Broker, handler MessageHandler, recorder *metrics.Recorder, logger zerolog.Logger) *QueueListenerService {
	if handler == nil {
		handler = NewPrintMessageHandler(logger)
	}

	return &QueueListenerService{
		queue:       queue,
		consumerTag: consumerTag,
		durable:     durable,
		reconnect:   reconnect,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		broker:      broker,
		handler:     handler,
		recorder:    recorder,
		logger:      logger,
		state:       newServiceState(),
	}
}

// Start connects, declares the queue and starts consuming.
// A connection failure here is returned to the caller; no retry is attempted at startup.
func (q *QueueListenerService) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx != nil {
		q.logger.Warn().Msg("QueueListenerService is already running")
		return errors.New("queue listener service is already running")
	}

	q.state.set(constants.StateStarting)

	deliveries, err := q.subscribe()
	if err != nil {
		q.state.set(constants.StateTerminated)
		q.logger.Error().Err(err).Str("queue", q.queue).Msg("Failed to subscribe to device queue")
		return err
	}

	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.state.set(constants.StateRunning)

	q.wg.Add(1)
	go func(ctx context.Context) {
		defer q.wg.Done()
		q.consume(ctx, deliveries)
	}(q.ctx)

	q.logger.Info().Str("queue", q.queue).Msgf("Waiting for messages in queue '%s'. To exit press CTRL+C", q.queue)
	return nil
}

// Stop cancels consumption, waits for the consumer goroutine and closes the broker connection.
func (q *QueueListenerService) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil {
		q.logger.Warn().Msg("QueueListenerService is not running")
		return errors.New("queue listener service is not running")
	}

	q.cancel()
	q.wg.Wait()

	q.ctx = nil
	q.cancel = nil

	if err := q.broker.Close(); err != nil {
		q.logger.Error().Err(err).Msg("Failed to close broker connection")
		return err
	}

	q.logger.Info().Msg("QueueListenerService stopped")
	return nil
}

// State returns the lifecycle state of the consumer.
func (q *QueueListenerService) State() string {
	return q.state.get()
}

func (q *QueueListenerService) subscribe() (<-chan amqpLib.Delivery, error) {
	if err := q.broker.Connect(); err != nil {
		return nil, err
	}

	if err := q.broker.DeclareQueue(q.queue, q.durable); err != nil {
		_ = q.broker.Close()
		return nil, err
	}

	deliveries, err := q.broker.Consume(q.queue, q.consumerTag)
	if err != nil {
		_ = q.broker.Close()
		return nil, err
	}
	return deliveries, nil
}

func (q *QueueListenerService) consume(ctx context.Context, deliveries <-chan amqpLib.Delivery) {
	defer q.state.set(constants.StateTerminated)

	for {
		select {
		case <-ctx.Done():
			q.logger.Info().Msg("QueueListenerService is stopping")
			return
		case d, ok := <-deliveries:
			if ok {
				q.handle(d)
				continue
			}
			if ctx.Err() != nil {
				return
			}

			if !q.reconnect {
				q.logger.Error().Str("queue", q.queue).Msg("Connection to broker lost, listener terminated")
				return
			}

			q.logger.Warn().Str("queue", q.queue).Msg("Connection to broker lost, reconnecting")
			deliveries = q.resubscribe(ctx)
			if deliveries == nil {
				return
			}
		}
	}
}

func (q *QueueListenerService) handle(d amqpLib.Delivery) {
	q.recorder.ObserveMessage()
	q.handler(models.InboundMessage{
		Queue:       q.queue,
		Body:        d.Body,
		ContentType: d.ContentType,
		MessageID:   d.MessageId,
		ReceivedAt:  time.Now(),
	})
}

// resubscribe retries subscribe with capped exponential backoff until it succeeds or ctx is cancelled.
func (q *QueueListenerService) resubscribe(ctx context.Context) <-chan amqpLib.Delivery {
	for attempt := 0; ; attempt++ {
		delay := backoffDelay(q.baseDelay, q.maxDelay, attempt)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}

		deliveries, err := q.subscribe()
		if err == nil {
			q.recorder.ObserveReconnect()
			q.logger.Info().Int("attempt", attempt+1).Str("queue", q.queue).Msg("Reconnected to broker")
			return deliveries
		}

		q.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Reconnect to broker failed")
	}
}

// backoffDelay doubles base per attempt up to maxDelay, then draws uniformly from [delay/2, delay].
// Doubling stops before it could pass maxDelay, so large bases cannot overflow.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		if delay >= maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int64N(int64(half)+1))
}
