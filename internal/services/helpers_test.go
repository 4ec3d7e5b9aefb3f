package services_test

import (
	"bytes"
	"sync"

	"github.com/benmeehan/device-simulator/internal/mocks"
	"github.com/rs/zerolog"
)

// syncBuffer is a log sink that can be written from service goroutines and read from the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (zerolog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return zerolog.New(buf), buf
}

func newTestDeviceInfo() *mocks.MockDeviceInfo {
	deviceInfo := new(mocks.MockDeviceInfo)
	deviceInfo.On("GetDeviceID").Return("NAV-001")
	deviceInfo.On("GetFirmwareVersion").Return("1.0.0")
	return deviceInfo
}
