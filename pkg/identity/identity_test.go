package identity_test

import (
	"strings"
	"testing"

	"github.com/benmeehan/device-simulator/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeviceInfo_Success(t *testing.T) {
	info, err := identity.NewDeviceInfo("NAV-001", "v1.2")

	require.NoError(t, err)
	assert.Equal(t, "NAV-001", info.GetDeviceID())
	assert.Equal(t, "1.2.0", info.GetFirmwareVersion())
}

func TestNewDeviceInfo_InvalidFirmware(t *testing.T) {
	_, err := identity.NewDeviceInfo("NAV-001", "not-a-version")
	assert.Error(t, err)
}

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want error
	}{
		{"valid", "NAV-001", nil},
		{"empty", "", identity.ErrEmptyDeviceID},
		{"slash", "NAV/001", identity.ErrInvalidDeviceID},
		{"space", "NAV 001", identity.ErrInvalidDeviceID},
		{"too long", strings.Repeat("a", 256), identity.ErrDeviceIDTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := identity.ValidateDeviceID(tt.id)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
