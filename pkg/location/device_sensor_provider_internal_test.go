package location

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentPort behaves like a serial port whose receiver sends nothing before the read timeout.
type silentPort struct {
	err   error
	reads int
}

func (s *silentPort) Read(p []byte) (int, error) {
	s.reads++
	return 0, s.err
}

func TestNextFix_SilentPortTimesOut(t *testing.T) {
	for _, readErr := range []error{nil, io.EOF} {
		port := &silentPort{err: readErr}

		_, err := nextFix(newGPSScanner(port))

		assert.ErrorIs(t, err, ErrGPSReadTimeout, "read error %v", readErr)
		assert.Equal(t, 1, port.reads, "a timed out read must not be retried by the scanner")
	}
}

func TestNextFix_SkipsInvalidSentences(t *testing.T) {
	input := "garbage\n" +
		"$GPGGA,092753.000,2836.8520,N,07712.5580,E,0,00,,,M,,M,,*42\n" +
		"$GPRMC,092751.000,A,2836.8400,N,07712.5460,E,0.02,31.66,280511,,,A*5E\n"

	fix, err := nextFix(newGPSScanner(strings.NewReader(input)))

	require.NoError(t, err)
	assert.InDelta(t, 28.6140, fix.Latitude, 1e-6)
	assert.InDelta(t, 77.2091, fix.Longitude, 1e-6)
}

func TestNextFix_ReadError(t *testing.T) {
	port := &silentPort{err: errors.New("device disconnected")}

	_, err := nextFix(newGPSScanner(port))

	assert.EqualError(t, err, "device disconnected")
}
