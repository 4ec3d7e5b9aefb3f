package services

import (
	"sync"

	"github.com/benmeehan/device-simulator/internal/constants"
)

// serviceState tracks a service's lifecycle state for concurrent readers.
type serviceState struct {
	mu    sync.RWMutex
	value string
}

func newServiceState() *serviceState {
	return &serviceState{value: constants.StateStarting}
}

func (s *serviceState) set(value string) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
}

func (s *serviceState) get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}
