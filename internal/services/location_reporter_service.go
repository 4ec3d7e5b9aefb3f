package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/device-simulator/internal/constants"
	"github.com/benmeehan/device-simulator/internal/metrics"
	"github.com/benmeehan/device-simulator/internal/models"
	"github.com/benmeehan/device-simulator/pkg/backend"
	"github.com/benmeehan/device-simulator/pkg/identity"
	"github.com/benmeehan/device-simulator/pkg/location"
)

// ErrLocationRejected is returned by ReportLocation when the backend answers with a non-200 status.
var ErrLocationRejected = errors.New("location update rejected")

// LocationReporterService moves the simulated device and reports each new position to the backend.
type LocationReporterService struct {
	// Configuration fields
	interval     time.Duration
	clearHistory bool

	// Dependencies
	deviceInfo identity.DeviceInfoInterface
	provider   location.Provider
	backend    backend.LocationUpdater
	mirror     LocationMirror
	recorder   *metrics.Recorder
	logger     zerolog.Logger

	// Internal state management
	state  *serviceState
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLocationReporterService creates a new LocationReporterService instance.
// mirror and recorder may be nil.
func NewLocationReporterService(interval time.Duration, clearHistory bool, deviceInfo identity.DeviceInfoInterface,
	provider location.Provider, backendClient backend.LocationUpdater, mirror LocationMirror, recorder *metrics.Recorder,
	logger zerolog.Logger) *LocationReporterService {
	return &LocationReporterService{
		interval:     interval,
		clearHistory: clearHistory,
		deviceInfo:   deviceInfo,
		provider:     provider,
		backend:      backendClient,
		mirror:       mirror,
		recorder:     recorder,
		logger:       logger,
		state:        newServiceState(),
	}
}

// Start launches the reporting loop in a separate goroutine.
func (l *LocationReporterService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx != nil {
		l.logger.Warn().Msg("LocationReporterService is already running")
		return errors.New("location reporter service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.state.set(constants.StateStarting)

	l.wg.Add(1)
	go func(ctx context.Context) {
		defer l.wg.Done()
		l.run(ctx)
	}(l.ctx)

	l.logger.Info().
		Str("device_id", l.deviceInfo.GetDeviceID()).
		Dur("interval_ms", l.interval).
		Msg("LocationReporterService started")
	return nil
}

// Stop cancels the loop, waits for it to exit and closes the provider.
// A provider read still in flight is abandoned rather than waited for.
func (l *LocationReporterService) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ctx == nil {
		l.logger.Warn().Msg("LocationReporterService is not running")
		return errors.New("location reporter service is not running")
	}

	l.cancel()
	l.wg.Wait()

	l.ctx = nil
	l.cancel = nil

	if err := l.provider.Close(); err != nil {
		l.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	l.logger.Info().Msg("LocationReporterService stopped")
	return nil
}

// State returns the lifecycle state of the reporting loop.
func (l *LocationReporterService) State() string {
	return l.state.get()
}

func (l *LocationReporterService) run(ctx context.Context) {
	defer l.state.set(constants.StateTerminated)

	if l.clearHistory {
		if err := l.backend.ClearLocationHistory(ctx, l.deviceInfo.GetDeviceID()); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to clear location history")
		} else {
			l.logger.Info().Msg("Location history cleared")
		}
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.state.set(constants.StateRunning)
	for {
		select {
		case <-ticker.C:
			// Failures are logged inside; the next tick runs regardless
			_ = l.ReportLocation(ctx)
		case <-ctx.Done():
			l.logger.Info().Msg("LocationReporterService is stopping")
			return
		}
	}
}

// ReportLocation performs one tick: advance the coordinate and push it to the backend.
func (l *LocationReporterService) ReportLocation(ctx context.Context) error {
	deviceID := l.deviceInfo.GetDeviceID()

	loc, err := l.readLocation(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Error().Err(err).Msg("Failed to get location from provider")
		l.recorder.ObserveLocationUpdate(metrics.ResultError, 0, 0)
		return err
	}

	if l.mirror != nil {
		if err := l.mirror.Publish(deviceID, loc); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to mirror location")
		}
	}

	status, body, err := l.backend.UpdateLocation(ctx, deviceID, models.LocationFrom(loc))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Error().Err(err).Str("device_id", deviceID).Msg("Failed to update location")
		l.recorder.ObserveLocationUpdate(metrics.ResultError, 0, 0)
		return err
	}

	if status != http.StatusOK {
		l.logger.Error().
			Str("device_id", deviceID).
			Int("status", status).
			Msgf("Failed to update location: %d - %s", status, body)
		l.recorder.ObserveLocationUpdate(metrics.ResultRejected, 0, 0)
		return fmt.Errorf("%w: status %d", ErrLocationRejected, status)
	}

	l.logger.Info().
		Str("device_id", deviceID).
		Float64("lat", loc.Latitude).
		Float64("lng", loc.Longitude).
		Msgf("Location updated successfully: %s", loc)
	l.recorder.ObserveLocationUpdate(metrics.ResultSuccess, loc.Latitude, loc.Longitude)
	return nil
}

type providerResult struct {
	loc location.Location
	err error
}

// readLocation returns as soon as ctx is cancelled, even if the provider read is still blocked.
// The abandoned read is released when Stop closes the provider.
func (l *LocationReporterService) readLocation(ctx context.Context) (location.Location, error) {
	result := make(chan providerResult, 1)
	go func() {
		loc, err := l.provider.GetLocation()
		result <- providerResult{loc: loc, err: err}
	}()

	select {
	case r := <-result:
		return r.loc, r.err
	case <-ctx.Done():
		return location.Location{}, ctx.Err()
	}
}
