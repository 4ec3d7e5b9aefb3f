package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/device-simulator/internal/constants"
	"github.com/benmeehan/device-simulator/internal/metrics"
	"github.com/benmeehan/device-simulator/internal/service_registry"
	"github.com/benmeehan/device-simulator/internal/utils"
	"github.com/benmeehan/device-simulator/pkg/amqp"
	"github.com/benmeehan/device-simulator/pkg/backend"
	"github.com/benmeehan/device-simulator/pkg/file"
	"github.com/benmeehan/device-simulator/pkg/identity"
	"github.com/benmeehan/device-simulator/pkg/mqtt"
)

func main() {
	// Structured JSON logging until the config says otherwise
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file, .env and environment
	config, err := utils.LoadConfig(constants.DefaultConfigFile, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = newLogger(config)

	deviceInfo, err := identity.NewDeviceInfo(config.Device.ID, config.Device.FirmwareVersion)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid device identity")
	}
	logger = logger.With().Str("device_id", deviceInfo.GetDeviceID()).Logger()

	backendClient := backend.NewClient(config.Backend.BaseURL, config.Backend.RequestTimeout, deviceInfo)
	broker := amqp.NewAmqpService(config.Broker.URL)
	recorder := metrics.NewRecorder(deviceInfo.GetDeviceID())

	// The MQTT connection is only needed for the location mirror
	var mqttClient mqtt.MQTTClient
	if config.MQTTMirror.Enabled {
		clientID := config.MQTTMirror.ClientID + "-" + uuid.New().String()
		logger.Info().Msgf("Using MQTT Client ID: %s", clientID)

		mqttService := mqtt.NewMqttService(fileClient)
		if err := mqttService.Initialize(config.MQTTMirror.Broker, clientID, config.MQTTMirror.CACertificate); err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		mqttClient = mqttService
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(backendClient, broker, mqttClient, fileClient, recorder, logger)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config, deviceInfo); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Some services did not stop cleanly")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}

func newLogger(config *utils.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if config.Logging.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
