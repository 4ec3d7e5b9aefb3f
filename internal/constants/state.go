package constants

// Service lifecycle states
const (
	// StateStarting is held from Start until the loop goroutine is running
	StateStarting = "starting"
	// StateRunning indicates the loop is active
	StateRunning = "running"
	// StateTerminated indicates the loop has exited, either on Stop or on an unrecoverable error
	StateTerminated = "terminated"
)
