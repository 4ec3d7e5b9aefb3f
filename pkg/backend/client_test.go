package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benmeehan/device-simulator/internal/models"
	"github.com/benmeehan/device-simulator/pkg/backend"
	"github.com/benmeehan/device-simulator/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *identity.DeviceInfo {
	t.Helper()
	info, err := identity.NewDeviceInfo("NAV-001", "1.4.2")
	require.NoError(t, err)
	return info
}

func TestClient_UpdateLocation_Success(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotBody   models.Location
		gotHeader http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"Location updated successfully"}`))
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, time.Second, newDevice(t))
	status, body, err := client.UpdateLocation(context.Background(), "NAV-001", models.Location{Lat: 28.614, Lng: 77.2091})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Location updated successfully")
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/devices/NAV-001/location", gotPath)
	assert.Equal(t, models.Location{Lat: 28.614, Lng: 77.2091}, gotBody)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "1.4.2", gotHeader.Get("X-Device-Firmware"))
	assert.Equal(t, "device-simulator/1.4.2", gotHeader.Get("User-Agent"))
}

// TestClient_UpdateLocation_NotFound tests that error statuses come back as values, not errors.
func TestClient_UpdateLocation_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found\n"))
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, time.Second, newDevice(t))
	status, body, err := client.UpdateLocation(context.Background(), "NAV-001", models.Location{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not found", body)
}

func TestClient_UpdateLocation_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := backend.NewClient(url, time.Second, newDevice(t))
	_, _, err := client.UpdateLocation(context.Background(), "NAV-001", models.Location{})

	assert.Error(t, err)
}

func TestClient_ClearLocationHistory(t *testing.T) {
	var gotMethod, gotPath string
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, time.Second, newDevice(t))

	require.NoError(t, client.ClearLocationHistory(context.Background(), "NAV-001"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/devices/NAV-001/location", gotPath)

	status.Store(http.StatusInternalServerError)
	assert.Error(t, client.ClearLocationHistory(context.Background(), "NAV-001"))
}
