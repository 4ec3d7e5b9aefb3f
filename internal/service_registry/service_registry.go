package service_registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/device-simulator/internal/constants"
	"github.com/benmeehan/device-simulator/internal/metrics"
	"github.com/benmeehan/device-simulator/internal/registry"
	"github.com/benmeehan/device-simulator/internal/services"
	"github.com/benmeehan/device-simulator/internal/utils"
	"github.com/benmeehan/device-simulator/pkg/amqp"
	"github.com/benmeehan/device-simulator/pkg/backend"
	"github.com/benmeehan/device-simulator/pkg/file"
	"github.com/benmeehan/device-simulator/pkg/identity"
	"github.com/benmeehan/device-simulator/pkg/location"
	"github.com/benmeehan/device-simulator/pkg/mqtt"
)

// Registered service names, in start order.
const (
	LocationServiceName = "location"
	ListenerServiceName = "listener"
	MetricsServiceName  = "metrics"
)

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	backend     backend.LocationUpdater
	broker      amqp.Broker
	mqttClient  mqtt.MQTTClient // nil when the MQTT mirror is disabled
	fileClient  file.FileOperations
	recorder    *metrics.Recorder
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(backendClient backend.LocationUpdater, broker amqp.Broker, mqttClient mqtt.MQTTClient,
	fileClient file.FileOperations, recorder *metrics.Recorder, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		backend:    backendClient,
		broker:     broker,
		mqttClient: mqttClient,
		fileClient: fileClient,
		recorder:   recorder,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns a registered service by name.
func (sr *ServiceRegistry) Service(name string) (registry.Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// ServiceNames returns the registered names in registration order.
func (sr *ServiceRegistry) ServiceNames() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deviceInfo identity.DeviceInfoInterface) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    LocationServiceName,
			enabled: config.Services.Location.Enabled,
			constructor: func() (registry.Service, error) {
				provider, err := sr.newProvider(config)
				if err != nil {
					return nil, err
				}

				var mirror services.LocationMirror
				if config.MQTTMirror.Enabled {
					if sr.mqttClient == nil {
						return nil, errors.New("mqtt mirror is enabled but no MQTT client was provided")
					}
					mirror = services.NewMQTTLocationMirror(
						config.MQTTMirror.Topic,
						config.MQTTMirror.QOS,
						constants.MirrorPublishTimeout,
						sr.mqttClient,
					)
				}

				return services.NewLocationReporterService(
					config.Services.Location.Interval,
					config.Backend.ClearHistoryOnStart,
					deviceInfo,
					provider,
					sr.backend,
					mirror,
					sr.recorder,
					sr.Logger,
				), nil
			},
		},
		{
			name:    ListenerServiceName,
			enabled: config.Services.Listener.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewQueueListenerService(
					deviceInfo.GetDeviceID(),
					deviceInfo.GetDeviceID()+"-"+uuid.NewString(),
					config.Broker.Durable,
					config.Broker.Reconnect,
					config.Broker.BaseDelay,
					config.Broker.MaxBackoff,
					sr.broker,
					nil,
					sr.recorder,
					sr.Logger,
				), nil
			},
		},
		{
			name:    MetricsServiceName,
			enabled: config.Services.Metrics.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewMetricsServerService(
					config.Services.Metrics.Address,
					sr.recorder,
					sr.stateSources(),
					sr.Logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

// stateSources collects the already registered services that report a lifecycle state.
func (sr *ServiceRegistry) stateSources() map[string]registry.StateReporter {
	sources := make(map[string]registry.StateReporter)
	for _, name := range sr.serviceKeys {
		if reporter, ok := sr.services[name].(registry.StateReporter); ok {
			sources[name] = reporter
		}
	}
	return sources
}

func (sr *ServiceRegistry) newProvider(config *utils.Config) (location.Provider, error) {
	cfg := config.Services.Location
	start := location.Location{Latitude: cfg.StartLatitude, Longitude: cfg.StartLongitude}

	switch cfg.Provider {
	case location.ProviderWalk:
		return location.NewWalkProvider(start, cfg.StepSize), nil

	case location.ProviderNMEA:
		f, err := sr.fileClient.OpenFile(cfg.NMEAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open NMEA log: %w", err)
		}
		defer f.Close()
		return location.NewNMEAReplayProvider(f)

	case location.ProviderSerial:
		return location.NewDeviceSensorProvider(cfg.GPSDevicePort, cfg.GPSBaudRate), nil

	case location.ProviderRoute:
		ctx, cancel := context.WithTimeout(context.Background(), config.Backend.RequestTimeout)
		defer cancel()
		destination := location.Location{Latitude: cfg.DestinationLat, Longitude: cfg.DestinationLng}
		return location.NewGoogleRouteProvider(ctx, cfg.MapsAPIKey, start, destination, cfg.StepSize)

	default:
		return nil, fmt.Errorf("unknown location provider %q", cfg.Provider)
	}
}
