package location

import (
	"strings"

	"github.com/adrianmo/go-nmea"
)

// fixFromSentence extracts a location from a GGA or RMC sentence.
// The boolean is false for other sentence types and for sentences without a valid fix.
func fixFromSentence(line string) (Location, bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return Location{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Location{}, false, err
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			return Location{}, false, nil
		}
		// HDOP stands in for accuracy
		return Location{Latitude: s.Latitude, Longitude: s.Longitude, Accuracy: s.HDOP}, true, nil
	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return Location{}, false, nil
		}
		return Location{Latitude: s.Latitude, Longitude: s.Longitude}, true, nil
	}

	return Location{}, false, nil
}
