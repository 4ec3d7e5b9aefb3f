package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/benmeehan/device-simulator/internal/constants"
	"github.com/benmeehan/device-simulator/pkg/file"
	"github.com/benmeehan/device-simulator/pkg/location"
)

// Config represents the structure of the configuration file.
type Config struct {
	Device struct {
		ID              string `yaml:"id"`               // Device identifier, also the queue name
		FirmwareVersion string `yaml:"firmware_version"` // Reported to the backend in request headers
	} `yaml:"device"`

	Backend struct {
		BaseURL             string        `yaml:"base_url"`               // Backend root, e.g. http://localhost:8080
		RequestTimeout      time.Duration `yaml:"request_timeout"`        // Timeout for a single location update
		ClearHistoryOnStart bool          `yaml:"clear_history_on_start"` // Clear stored location history before the first update
	} `yaml:"backend"`

	Services struct {
		Location struct {
			Enabled        bool          `yaml:"enabled"`         // Enable/disable the location reporter
			Interval       time.Duration `yaml:"interval"`        // Interval between location updates
			Provider       string        `yaml:"provider"`        // walk, nmea, serial or route
			StartLatitude  float64       `yaml:"start_latitude"`  // Starting coordinate for walk and route
			StartLongitude float64       `yaml:"start_longitude"` // Starting coordinate for walk and route
			StepSize       float64       `yaml:"step_size"`       // Degrees moved per tick
			NMEAFile       string        `yaml:"nmea_file"`       // Recorded NMEA log for the nmea provider
			GPSDevicePort  string        `yaml:"gps_device_port"` // Serial port for the serial provider
			GPSBaudRate    int           `yaml:"gps_baud_rate"`   // Baud rate for the serial provider
			MapsAPIKey     string        `yaml:"maps_api_key"`    // Google Maps API key for the route provider
			DestinationLat float64       `yaml:"destination_lat"` // Route destination
			DestinationLng float64       `yaml:"destination_lng"` // Route destination
		} `yaml:"location_service"`

		Listener struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the queue listener
		} `yaml:"queue_listener"`

		Metrics struct {
			Enabled bool   `yaml:"enabled"` // Serve /metrics and /healthz
			Address string `yaml:"address"` // Listen address
		} `yaml:"metrics"`
	} `yaml:"services"`

	Broker struct {
		URL        string        `yaml:"url"`         // AMQP URL
		Durable    bool          `yaml:"durable"`     // Must match the flag the backend declares the queue with
		Reconnect  bool          `yaml:"reconnect"`   // Reconnect when the connection drops mid-consumption
		BaseDelay  time.Duration `yaml:"base_delay"`  // First reconnect delay
		MaxBackoff time.Duration `yaml:"max_backoff"` // Cap on reconnect delay
	} `yaml:"broker"`

	MQTTMirror struct {
		Enabled       bool   `yaml:"enabled"`        // Mirror every reported location to MQTT
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID prefix
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		Topic         string `yaml:"topic"`          // Base topic, the device ID is appended
		QOS           int    `yaml:"qos"`            // MQTT QoS level
	} `yaml:"mqtt_mirror"`

	Logging struct {
		Level  string `yaml:"level"`  // zerolog level name
		Pretty bool   `yaml:"pretty"` // Human-readable console output instead of JSON
	} `yaml:"logging"`
}

// DefaultConfig returns the built-in configuration: NAV-001 walking from New Delhi against local services.
func DefaultConfig() *Config {
	var c Config

	c.Device.ID = constants.DefaultDeviceID
	c.Device.FirmwareVersion = constants.DefaultFirmwareVersion

	c.Backend.BaseURL = constants.DefaultBackendURL
	c.Backend.RequestTimeout = constants.DefaultRequestTimeout

	c.Services.Location.Enabled = true
	c.Services.Location.Interval = constants.DefaultReportInterval
	c.Services.Location.Provider = location.ProviderWalk
	c.Services.Location.StartLatitude = constants.DefaultStartLatitude
	c.Services.Location.StartLongitude = constants.DefaultStartLongitude
	c.Services.Location.StepSize = constants.DefaultStepSize
	c.Services.Location.GPSBaudRate = constants.DefaultGPSBaudRate

	c.Services.Listener.Enabled = true

	c.Services.Metrics.Address = constants.DefaultMetricsAddress

	c.Broker.URL = constants.DefaultBrokerURL
	c.Broker.Reconnect = true
	c.Broker.BaseDelay = constants.DefaultReconnectBaseDelay
	c.Broker.MaxBackoff = constants.DefaultReconnectMaxDelay

	c.MQTTMirror.Broker = constants.DefaultMirrorBroker
	c.MQTTMirror.ClientID = constants.DefaultMirrorClientID
	c.MQTTMirror.Topic = constants.DefaultMirrorTopic
	c.MQTTMirror.QOS = constants.DefaultMirrorQOS

	c.Logging.Level = constants.DefaultLogLevel

	return &c
}

// LoadConfig loads the YAML configuration from the specified file on top of the defaults,
// then applies .env and environment overrides. A missing file leaves the defaults in place.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()

	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := fileClient.ReadYamlFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(constants.EnvDeviceID); v != "" {
		c.Device.ID = v
	}
	if v := os.Getenv(constants.EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(constants.EnvBrokerURL); v != "" {
		c.Broker.URL = v
	}
	if v := os.Getenv(constants.EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.Device.ID == "" {
		return errors.New("device.id is required")
	}

	loc := c.Services.Location
	if loc.Enabled {
		if c.Backend.BaseURL == "" {
			return errors.New("backend.base_url is required")
		}
		if loc.Interval <= 0 {
			return fmt.Errorf("location_service.interval must be positive, got %s", loc.Interval)
		}

		switch loc.Provider {
		case location.ProviderWalk:
			if loc.StepSize <= 0 {
				return fmt.Errorf("location_service.step_size must be positive, got %v", loc.StepSize)
			}
		case location.ProviderNMEA:
			if loc.NMEAFile == "" {
				return errors.New("location_service.nmea_file is required for the nmea provider")
			}
		case location.ProviderSerial:
			if loc.GPSDevicePort == "" || loc.GPSBaudRate <= 0 {
				return errors.New("location_service.gps_device_port and gps_baud_rate are required for the serial provider")
			}
		case location.ProviderRoute:
			if loc.MapsAPIKey == "" {
				return errors.New("location_service.maps_api_key is required for the route provider")
			}
			if loc.StepSize <= 0 {
				return fmt.Errorf("location_service.step_size must be positive, got %v", loc.StepSize)
			}
		default:
			return fmt.Errorf("unknown location provider %q", loc.Provider)
		}
	}

	if c.Services.Listener.Enabled {
		if c.Broker.URL == "" {
			return errors.New("broker.url is required")
		}
		if c.Broker.Reconnect && (c.Broker.BaseDelay <= 0 || c.Broker.MaxBackoff < c.Broker.BaseDelay) {
			return errors.New("broker.base_delay must be positive and not exceed broker.max_backoff")
		}
	}

	if c.MQTTMirror.Enabled && (c.MQTTMirror.Broker == "" || c.MQTTMirror.Topic == "") {
		return errors.New("mqtt_mirror.broker and mqtt_mirror.topic are required")
	}
	if c.MQTTMirror.QOS < 0 || c.MQTTMirror.QOS > 2 {
		return fmt.Errorf("mqtt_mirror.qos must be 0, 1 or 2, got %d", c.MQTTMirror.QOS)
	}

	return nil
}
