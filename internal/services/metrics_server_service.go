package services

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/benmeehan/device-simulator/internal/constants"
	"github.com/benmeehan/device-simulator/internal/metrics"
	"github.com/benmeehan/device-simulator/internal/registry"
)

const metricsShutdownTimeout = 5 * time.Second

// healthResponse is the /healthz body.
type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// MetricsServerService serves /metrics and /healthz on a side listener.
type MetricsServerService struct {
	// Configuration fields
	address string

	// Dependencies
	recorder *metrics.Recorder
	sources  map[string]registry.StateReporter
	logger   zerolog.Logger

	// Internal state management
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewMetricsServerService creates the service. sources are reported on /healthz by name.
func NewMetricsServerService(address string, recorder *metrics.Recorder, sources map[string]registry.StateReporter,
	logger zerolog.Logger) *MetricsServerService {
	return &MetricsServerService{
		address:  address,
		recorder: recorder,
		sources:  sources,
		logger:   logger,
	}
}

// Router builds the HTTP routes.
func (m *MetricsServerService) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", m.recorder.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", m.handleHealth).Methods(http.MethodGet)
	return r
}

// Start binds the listener synchronously so address errors surface here, then serves in the background.
func (m *MetricsServerService) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		m.logger.Warn().Msg("MetricsServerService is already running")
		return errors.New("metrics server service is already running")
	}

	ln, err := net.Listen("tcp", m.address)
	if err != nil {
		m.logger.Error().Err(err).Str("address", m.address).Msg("Failed to bind metrics listener")
		return err
	}

	m.listener = ln
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.wg.Add(1)
	go func(server *http.Server) {
		defer m.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}(m.server)

	m.logger.Info().Str("address", ln.Addr().String()).Msg("MetricsServerService started")
	return nil
}

// Stop shuts the server down gracefully.
func (m *MetricsServerService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == nil {
		m.logger.Warn().Msg("MetricsServerService is not running")
		return errors.New("metrics server service is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()

	err := m.server.Shutdown(ctx)
	m.wg.Wait()

	m.server = nil
	m.listener = nil

	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to shut down metrics server")
		return err
	}

	m.logger.Info().Msg("MetricsServerService stopped")
	return nil
}

// Addr returns the bound address, or nil when not running.
func (m *MetricsServerService) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *MetricsServerService) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Services: make(map[string]string, len(m.sources))}

	for name, source := range m.sources {
		state := source.State()
		resp.Services[name] = state
		if state == constants.StateTerminated {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		m.logger.Error().Err(err).Msg("Failed to encode health response")
	}
}
