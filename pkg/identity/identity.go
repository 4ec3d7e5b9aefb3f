package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

// maxDeviceIDLength is the AMQP short-string limit; the device ID doubles as the queue name.
const maxDeviceIDLength = 255

var (
	ErrEmptyDeviceID   = errors.New("device id must not be empty")
	ErrInvalidDeviceID = errors.New("device id must not contain '/' or whitespace")
	ErrDeviceIDTooLong = fmt.Errorf("device id must be at most %d bytes", maxDeviceIDLength)
)

// DeviceInfoInterface defines read access to the device identity.
type DeviceInfoInterface interface {
	GetDeviceID() string
	GetFirmwareVersion() string
}

// DeviceInfo holds the immutable identity of the simulated device.
type DeviceInfo struct {
	id       string
	firmware *semver.Version
}

// NewDeviceInfo validates the identifier and firmware version and returns the identity.
func NewDeviceInfo(deviceID, firmwareVersion string) (*DeviceInfo, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	version, err := semver.NewVersion(firmwareVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid firmware version %q: %w", firmwareVersion, err)
	}

	return &DeviceInfo{
		id:       deviceID,
		firmware: version,
	}, nil
}

// ValidateDeviceID checks that the identifier is usable as a URL path segment and a queue name.
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return ErrEmptyDeviceID
	}
	if len(deviceID) > maxDeviceIDLength {
		return ErrDeviceIDTooLong
	}
	if strings.ContainsRune(deviceID, '/') || strings.IndexFunc(deviceID, unicode.IsSpace) >= 0 {
		return ErrInvalidDeviceID
	}
	return nil
}

// GetDeviceID returns the device ID.
func (d *DeviceInfo) GetDeviceID() string {
	return d.id
}

// GetFirmwareVersion returns the normalized firmware version.
func (d *DeviceInfo) GetFirmwareVersion() string {
	return d.firmware.String()
}
