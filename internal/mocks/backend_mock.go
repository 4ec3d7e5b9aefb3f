package mocks

import (
	"context"

	"github.com/benmeehan/device-simulator/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockLocationUpdater is a mock implementation of the backend.LocationUpdater interface
type MockLocationUpdater struct {
	mock.Mock
}

func (m *MockLocationUpdater) UpdateLocation(ctx context.Context, deviceID string, loc models.Location) (int, string, error) {
	args := m.Called(ctx, deviceID, loc)
	return args.Int(0), args.String(1), args.Error(2)
}

func (m *MockLocationUpdater) ClearLocationHistory(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}
