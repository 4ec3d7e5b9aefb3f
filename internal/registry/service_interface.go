package registry

// Service is the interface for all plug-in services
type Service interface {
	Start() error
	Stop() error
}

// StateReporter is implemented by services that expose their lifecycle state.
type StateReporter interface {
	State() string
}
