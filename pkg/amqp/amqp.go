package amqp

import (
	"errors"
	"fmt"
	"sync"

	amqpLib "github.com/streadway/amqp"
)

// ErrNotConnected is returned by channel operations before Connect succeeds.
var ErrNotConnected = errors.New("amqp: not connected")

// Broker defines the broker operations the queue listener needs.
type Broker interface {
	Connect() error
	DeclareQueue(name string, durable bool) error
	Consume(queue, consumerTag string) (<-chan amqpLib.Delivery, error)
	Close() error
}

// AMQPChannel is the subset of *amqp.Channel used by AmqpService.
type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqpLib.Table) (amqpLib.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqpLib.Table) (<-chan amqpLib.Delivery, error)
	Close() error
}

// Dialer opens a connection and a channel on it.
type Dialer func(url string) (closer func() error, channel AMQPChannel, err error)

// AmqpService holds one connection and one channel to the broker.
type AmqpService struct {
	url  string
	dial Dialer

	mu        sync.Mutex
	channel   AMQPChannel
	closeConn func() error
}

// NewAmqpService creates a new AmqpService for the given broker URL.
func NewAmqpService(url string) *AmqpService {
	return NewAmqpServiceWithDialer(url, DialBroker)
}

// NewAmqpServiceWithDialer creates an AmqpService that connects through dial.
func NewAmqpServiceWithDialer(url string, dial Dialer) *AmqpService {
	return &AmqpService{
		url:  url,
		dial: dial,
	}
}

// DialBroker connects to a real broker.
func DialBroker(url string) (func() error, AMQPChannel, error) {
	conn, err := amqpLib.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	return conn.Close, ch, nil
}

// Connect opens the connection and channel, replacing any previous ones.
func (s *AmqpService) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()

	closeConn, channel, err := s.dial(s.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	s.closeConn = closeConn
	s.channel = channel
	return nil
}

// DeclareQueue declares a queue that is neither auto-deleted nor exclusive.
// Redeclaring an existing queue with the same flags is a no-op on the broker.
func (s *AmqpService) DeclareQueue(name string, durable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel == nil {
		return ErrNotConnected
	}

	_, err := s.channel.QueueDeclare(
		name,    // name
		durable, // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// Consume starts an auto-acknowledging consumer on the queue.
// The returned channel is closed when the connection or channel goes away.
func (s *AmqpService) Consume(queue, consumerTag string) (<-chan amqpLib.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel == nil {
		return nil, ErrNotConnected
	}

	deliveries, err := s.channel.Consume(
		queue,       // queue
		consumerTag, // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from queue %s: %w", queue, err)
	}
	return deliveries, nil
}

// Close closes the channel and the connection.
func (s *AmqpService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeLocked()
}

func (s *AmqpService) closeLocked() error {
	var errs []error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil && !errors.Is(err, amqpLib.ErrClosed) {
			errs = append(errs, err)
		}
		s.channel = nil
	}
	if s.closeConn != nil {
		if err := s.closeConn(); err != nil && !errors.Is(err, amqpLib.ErrClosed) {
			errs = append(errs, err)
		}
		s.closeConn = nil
	}
	return errors.Join(errs...)
}
