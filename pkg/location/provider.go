package location

// Provider interface defines the methods for location providers
type Provider interface {
	GetLocation() (Location, error)
	Close() error
}

// Provider names accepted in configuration.
const (
	ProviderWalk   = "walk"
	ProviderNMEA   = "nmea"
	ProviderSerial = "serial"
	ProviderRoute  = "route"
)
