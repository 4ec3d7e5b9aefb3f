package service_registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/device-simulator/internal/metrics"
	"github.com/benmeehan/device-simulator/internal/mocks"
	"github.com/benmeehan/device-simulator/internal/service_registry"
	"github.com/benmeehan/device-simulator/internal/services"
	"github.com/benmeehan/device-simulator/internal/utils"
	"github.com/benmeehan/device-simulator/pkg/file"
	"github.com/benmeehan/device-simulator/pkg/location"
	"github.com/benmeehan/device-simulator/pkg/mqtt"
)

func newTestRegistry(mqttClient mqtt.MQTTClient) *service_registry.ServiceRegistry {
	return service_registry.NewServiceRegistry(new(mocks.MockLocationUpdater), new(mocks.MockBroker), mqttClient,
		file.NewFileService(), metrics.NewRecorder("NAV-001"), zerolog.Nop())
}

func newDeviceInfo() *mocks.MockDeviceInfo {
	deviceInfo := new(mocks.MockDeviceInfo)
	deviceInfo.On("GetDeviceID").Return("NAV-001")
	deviceInfo.On("GetFirmwareVersion").Return("1.0.0")
	return deviceInfo
}

func TestRegisterServices_Defaults(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{service_registry.LocationServiceName, service_registry.ListenerServiceName}, sr.ServiceNames())

	svc, ok := sr.Service(service_registry.LocationServiceName)
	require.True(t, ok)
	assert.IsType(t, &services.LocationReporterService{}, svc)

	svc, ok = sr.Service(service_registry.ListenerServiceName)
	require.True(t, ok)
	assert.IsType(t, &services.QueueListenerService{}, svc)
}

func TestRegisterServices_MetricsLast(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()
	config.Services.Metrics.Enabled = true

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{
		service_registry.LocationServiceName,
		service_registry.ListenerServiceName,
		service_registry.MetricsServiceName,
	}, sr.ServiceNames())
}

func TestRegisterServices_Disabled(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()
	config.Services.Location.Enabled = false

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{service_registry.ListenerServiceName}, sr.ServiceNames())
}

func TestRegisterServices_UnknownProvider(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()
	config.Services.Location.Provider = "teleport"

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	assert.Error(t, err)
	assert.Empty(t, sr.ServiceNames())
}

func TestRegisterServices_MirrorWithoutClient(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()
	config.MQTTMirror.Enabled = true

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	assert.Error(t, err)
}

func TestRegisterServices_MirrorWithClient(t *testing.T) {
	// Setup
	sr := newTestRegistry(new(mocks.MockMQTTClient))
	config := utils.DefaultConfig()
	config.MQTTMirror.Enabled = true

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	assert.NoError(t, err)
}

func TestRegisterServices_NMEAProvider(t *testing.T) {
	// Setup
	dir := t.TempDir()
	logPath := filepath.Join(dir, "drive.nmea")
	require.NoError(t, os.WriteFile(logPath,
		[]byte("$GPGGA,092750.000,2836.8340,N,07712.5400,E,1,08,1.03,216.7,M,-36.3,M,,*44\n"), 0o600))

	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()
	config.Services.Location.Provider = location.ProviderNMEA
	config.Services.Location.NMEAFile = logPath

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	require.NoError(t, err)
	assert.Contains(t, sr.ServiceNames(), service_registry.LocationServiceName)
}

func TestRegisterServices_NMEAProviderMissingFile(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	config := utils.DefaultConfig()
	config.Services.Location.Provider = location.ProviderNMEA
	config.Services.Location.NMEAFile = filepath.Join(t.TempDir(), "missing.nmea")

	// Execute
	err := sr.RegisterServices(config, newDeviceInfo())

	// Assert
	assert.Error(t, err)
}

func TestRegisterService_Duplicate(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	first := new(mocks.MockService)
	second := new(mocks.MockService)

	// Execute
	sr.RegisterService("location", first)
	sr.RegisterService("location", second)

	// Assert
	svc, ok := sr.Service("location")
	require.True(t, ok)
	assert.Same(t, first, svc)
	assert.Len(t, sr.ServiceNames(), 1)
}

func TestStartServices_RollbackOnFailure(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	var stopped []string

	first := new(mocks.MockService)
	first.On("Start").Return(nil)
	first.On("Stop").Return(nil).Run(func(mock.Arguments) { stopped = append(stopped, "first") })

	second := new(mocks.MockService)
	second.On("Start").Return(nil)
	second.On("Stop").Return(nil).Run(func(mock.Arguments) { stopped = append(stopped, "second") })

	failing := new(mocks.MockService)
	failing.On("Start").Return(errors.New("connection refused"))

	never := new(mocks.MockService)

	sr.RegisterService("first", first)
	sr.RegisterService("second", second)
	sr.RegisterService("failing", failing)
	sr.RegisterService("never", never)

	// Execute
	err := sr.StartServices()

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start failing")
	assert.Equal(t, []string{"second", "first"}, stopped)
	never.AssertNotCalled(t, "Start")
	failing.AssertNotCalled(t, "Stop")
}

func TestStopServices_ReverseOrder(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	var stopped []string

	for _, name := range []string{"location", "listener", "metrics"} {
		name := name
		svc := new(mocks.MockService)
		svc.On("Stop").Return(nil).Run(func(mock.Arguments) { stopped = append(stopped, name) })
		sr.RegisterService(name, svc)
	}

	// Execute
	err := sr.StopServices()

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, []string{"metrics", "listener", "location"}, stopped)
}

func TestStopServices_JoinsErrors(t *testing.T) {
	// Setup
	sr := newTestRegistry(nil)
	ok := new(mocks.MockService)
	ok.On("Stop").Return(nil)
	bad := new(mocks.MockService)
	bad.On("Stop").Return(errors.New("not running"))
	sr.RegisterService("ok", ok)
	sr.RegisterService("bad", bad)

	// Execute
	err := sr.StopServices()

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop bad: not running")
	ok.AssertCalled(t, "Stop")
}
