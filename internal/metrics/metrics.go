package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Results recorded on location_updates_total.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder holds the simulator's collectors on a private registry.
// All methods are safe on a nil Recorder.
type Recorder struct {
	registry *prometheus.Registry

	LocationUpdates  *prometheus.CounterVec
	MessagesReceived prometheus.Counter
	BrokerReconnects prometheus.Counter
	Latitude         prometheus.Gauge
	Longitude        prometheus.Gauge
}

// NewRecorder creates and registers the collectors, plus the Go runtime and process collectors.
func NewRecorder(deviceID string) *Recorder {
	labels := prometheus.Labels{"device_id": deviceID}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		LocationUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "location_updates_total", Help: "Location updates sent to the backend, by result", ConstLabels: labels},
			[]string{"result"},
		),
		MessagesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "messages_received_total", Help: "Messages consumed from the device queue", ConstLabels: labels},
		),
		BrokerReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "broker_reconnects_total", Help: "Successful reconnects to the message broker", ConstLabels: labels},
		),
		Latitude: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "device_latitude", Help: "Last reported latitude", ConstLabels: labels},
		),
		Longitude: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "device_longitude", Help: "Last reported longitude", ConstLabels: labels},
		),
	}

	r.registry.MustRegister(r.LocationUpdates, r.MessagesReceived, r.BrokerReconnects, r.Latitude, r.Longitude)
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveLocationUpdate records one location update attempt and, on success, the coordinate.
func (r *Recorder) ObserveLocationUpdate(result string, lat, lng float64) {
	if r == nil {
		return
	}
	r.LocationUpdates.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		r.Latitude.Set(lat)
		r.Longitude.Set(lng)
	}
}

// ObserveMessage records one consumed message.
func (r *Recorder) ObserveMessage() {
	if r == nil {
		return
	}
	r.MessagesReceived.Inc()
}

// ObserveReconnect records one broker reconnect.
func (r *Recorder) ObserveReconnect() {
	if r == nil {
		return
	}
	r.BrokerReconnects.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
