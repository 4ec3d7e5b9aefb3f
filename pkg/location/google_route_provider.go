package location

import (
	"context"
	"errors"
	"fmt"
	"math"

	"googlemaps.github.io/maps"
)

// ErrEmptyRoute is returned when a route has fewer than two points.
var ErrEmptyRoute = errors.New("route has no path to walk")

// RouteProvider walks along a fixed path, moving a constant distance (in degrees) per read.
// At the end of the path it turns around and walks back.
type RouteProvider struct {
	path    []maps.LatLng
	next    int
	current maps.LatLng
	step    float64
}

// NewRouteProvider creates a RouteProvider over an already decoded path.
func NewRouteProvider(path []maps.LatLng, step float64) (*RouteProvider, error) {
	if len(path) < 2 {
		return nil, ErrEmptyRoute
	}

	length := 0.0
	for i := 1; i < len(path); i++ {
		length += math.Hypot(path[i].Lat-path[i-1].Lat, path[i].Lng-path[i-1].Lng)
	}
	if length == 0 {
		return nil, ErrEmptyRoute
	}

	walk := make([]maps.LatLng, len(path))
	copy(walk, path)

	return &RouteProvider{
		path:    walk,
		next:    1,
		current: walk[0],
		step:    step,
	}, nil
}

// FetchWalkingRoute asks the Directions API for a walking route and decodes its overview polyline.
func FetchWalkingRoute(ctx context.Context, client *maps.Client, origin, destination Location) ([]maps.LatLng, error) {
	routes, _, err := client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      latLngParam(origin),
		Destination: latLngParam(destination),
		Mode:        maps.TravelModeWalking,
	})
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 {
		return nil, ErrEmptyRoute
	}

	path, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode route polyline: %w", err)
	}
	return path, nil
}

// NewGoogleRouteProvider fetches a walking route from origin to destination and walks it.
func NewGoogleRouteProvider(ctx context.Context, apiKey string, origin, destination Location, step float64) (*RouteProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	path, err := FetchWalkingRoute(ctx, client, origin, destination)
	if err != nil {
		return nil, err
	}
	return NewRouteProvider(path, step)
}

// GetLocation moves step degrees along the path and returns the new position.
func (r *RouteProvider) GetLocation() (Location, error) {
	remaining := r.step
	for remaining > 0 {
		if r.next >= len(r.path) {
			r.turnAround()
		}

		target := r.path[r.next]
		dLat := target.Lat - r.current.Lat
		dLng := target.Lng - r.current.Lng
		dist := math.Hypot(dLat, dLng)

		if dist <= remaining {
			r.current = target
			r.next++
			remaining -= dist
			continue
		}

		ratio := remaining / dist
		r.current.Lat += dLat * ratio
		r.current.Lng += dLng * ratio
		remaining = 0
	}

	return Location{Latitude: r.current.Lat, Longitude: r.current.Lng}, nil
}

// Close is a no-op.
func (r *RouteProvider) Close() error {
	return nil
}

func (r *RouteProvider) turnAround() {
	for i, j := 0, len(r.path)-1; i < j; i, j = i+1, j-1 {
		r.path[i], r.path[j] = r.path[j], r.path[i]
	}
	r.next = 1
}

func latLngParam(l Location) string {
	return fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
}
