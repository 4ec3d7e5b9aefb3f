package location

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrNoFixes is returned when an NMEA log holds no usable GGA or RMC fix.
var ErrNoFixes = errors.New("no valid GPS fixes found")

// NMEAReplayProvider replays fixes from a recorded NMEA log, wrapping around at the end.
type NMEAReplayProvider struct {
	fixes []Location
	next  int
}

// NewNMEAReplayProvider parses every line of r and keeps the valid fixes.
// Lines that fail to parse are skipped; a recording usually contains partial sentences.
func NewNMEAReplayProvider(r io.Reader) (*NMEAReplayProvider, error) {
	var fixes []Location

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fix, ok, err := fixFromSentence(scanner.Text())
		if err != nil || !ok {
			continue
		}
		fixes = append(fixes, fix)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NMEA log: %w", err)
	}

	if len(fixes) == 0 {
		return nil, ErrNoFixes
	}

	return &NMEAReplayProvider{fixes: fixes}, nil
}

// GetLocation returns the next recorded fix.
func (p *NMEAReplayProvider) GetLocation() (Location, error) {
	fix := p.fixes[p.next]
	p.next = (p.next + 1) % len(p.fixes)
	return fix, nil
}

// Close is a no-op.
func (p *NMEAReplayProvider) Close() error {
	return nil
}
