package mocks

import (
	amqpLib "github.com/streadway/amqp"
	"github.com/stretchr/testify/mock"
)

// MockBroker is a mock implementation of the amqp.Broker interface
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Connect() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockBroker) DeclareQueue(name string, durable bool) error {
	args := m.Called(name, durable)
	return args.Error(0)
}

func (m *MockBroker) Consume(queue, consumerTag string) (<-chan amqpLib.Delivery, error) {
	args := m.Called(queue, consumerTag)
	deliveries, _ := args.Get(0).(chan amqpLib.Delivery)
	if deliveries == nil {
		return nil, args.Error(1)
	}
	return deliveries, args.Error(1)
}

func (m *MockBroker) Close() error {
	args := m.Called()
	return args.Error(0)
}
