package location

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// GPSReadTimeout bounds a single read from the serial port.
const GPSReadTimeout = 2 * time.Second

// ErrGPSReadTimeout is returned when the receiver sends nothing within GPSReadTimeout.
var ErrGPSReadTimeout = errors.New("no data from GPS device within read timeout")

var errNoGPSData = errors.New("no valid GPS data found")

// DeviceSensorProvider is responsible for retrieving location data from a GPS device connected via serial port.
type DeviceSensorProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication

	mu         sync.Mutex
	serialPort *serial.Port
	scanner    *bufio.Scanner
}

// NewDeviceSensorProvider creates a new instance of DeviceSensorProvider with the specified port and baud rate.
func NewDeviceSensorProvider(port string, baudRate int) *DeviceSensorProvider {
	return &DeviceSensorProvider{
		port:     port,
		baudRate: baudRate,
	}
}

// GetLocation reads sentences from the GPS device until one carries a valid fix.
// The port is opened on first use and kept open until Close.
func (d *DeviceSensorProvider) GetLocation() (Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.serialPort == nil {
		s, err := serial.OpenPort(&serial.Config{Name: d.port, Baud: d.baudRate, ReadTimeout: GPSReadTimeout})
		if err != nil {
			return Location{}, fmt.Errorf("failed to open GPS port %s: %w", d.port, err)
		}
		d.serialPort = s
		d.scanner = newGPSScanner(s)
	}

	fix, err := nextFix(d.scanner)
	switch {
	case err == nil:
		return fix, nil
	case errors.Is(err, ErrGPSReadTimeout):
		// The port is fine, only the partial line is lost
		d.scanner = newGPSScanner(d.serialPort)
		return Location{}, err
	default:
		// A broken stream is reopened on the next call
		_ = d.closePort()
		return Location{}, err
	}
}

// Close releases the serial port. It waits for an in-flight read, which is bounded by GPSReadTimeout.
func (d *DeviceSensorProvider) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closePort()
}

func (d *DeviceSensorProvider) closePort() error {
	if d.serialPort == nil {
		return nil
	}
	err := d.serialPort.Close()
	d.serialPort = nil
	d.scanner = nil
	return err
}

// timeoutReader turns the empty read a serial port returns on timeout into ErrGPSReadTimeout.
// Depending on the platform that read is (0, nil) or (0, io.EOF); a serial line never ends.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && len(p) > 0 && (err == nil || errors.Is(err, io.EOF)) {
		return 0, ErrGPSReadTimeout
	}
	return n, err
}

func newGPSScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(timeoutReader{r: r})
}

func nextFix(scanner *bufio.Scanner) (Location, error) {
	for scanner.Scan() {
		fix, ok, err := fixFromSentence(scanner.Text())
		if err != nil || !ok {
			continue
		}
		return fix, nil
	}

	if err := scanner.Err(); err != nil {
		return Location{}, err
	}
	return Location{}, errNoGPSData
}
