package mocks

import (
	"github.com/benmeehan/device-simulator/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockLocationMirror is a mock implementation of the services.LocationMirror interface
type MockLocationMirror struct {
	mock.Mock
}

func (m *MockLocationMirror) Publish(deviceID string, loc location.Location) error {
	args := m.Called(deviceID, loc)
	return args.Error(0)
}
