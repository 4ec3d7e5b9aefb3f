package models

import (
	"time"

	"github.com/benmeehan/device-simulator/pkg/location"
)

// Location is the body of a location update sent to the backend.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationFrom converts a provider reading into the wire body.
func LocationFrom(l location.Location) Location {
	return Location{Lat: l.Latitude, Lng: l.Longitude}
}

// LocationMirror is the MQTT payload published when location mirroring is enabled.
type LocationMirror struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
}
