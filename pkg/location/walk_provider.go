package location

// WalkProvider simulates movement by advancing both axes by a constant step on every read.
// It is owned by a single reporter and is not safe for concurrent use.
type WalkProvider struct {
	current Location
	step    float64
}

// NewWalkProvider creates a WalkProvider starting at the given coordinate.
func NewWalkProvider(start Location, step float64) *WalkProvider {
	return &WalkProvider{
		current: start,
		step:    step,
	}
}

// GetLocation advances the coordinate by one step and returns it.
func (w *WalkProvider) GetLocation() (Location, error) {
	w.current.Latitude += w.step
	w.current.Longitude += w.step
	return w.current, nil
}

// Close is a no-op.
func (w *WalkProvider) Close() error {
	return nil
}
