package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/benmeehan/device-simulator/internal/models"
	"github.com/benmeehan/device-simulator/pkg/identity"
)

// LocationUpdater defines the backend calls the location reporter makes.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, deviceID string, loc models.Location) (int, string, error)
	ClearLocationHistory(ctx context.Context, deviceID string) error
}

// Client talks to the device backend over HTTP.
type Client struct {
	client *resty.Client
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, deviceInfo identity.DeviceInfoInterface) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "device-simulator/"+deviceInfo.GetFirmwareVersion()).
		SetHeader("X-Device-Firmware", deviceInfo.GetFirmwareVersion())

	return &Client{client: client}
}

// UpdateLocation PUTs the coordinate and returns the status code and response body.
// A non-2xx status is not an error; only transport failures are.
func (c *Client) UpdateLocation(ctx context.Context, deviceID string, loc models.Location) (int, string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loc).
		Put(locationPath(deviceID))
	if err != nil {
		return 0, "", fmt.Errorf("location update request failed: %w", err)
	}

	return resp.StatusCode(), resp.String(), nil
}

// ClearLocationHistory deletes the location history the backend keeps for the device.
func (c *Client) ClearLocationHistory(ctx context.Context, deviceID string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete(locationPath(deviceID))
	if err != nil {
		return fmt.Errorf("clear history request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("failed to clear location history: %d - %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func locationPath(deviceID string) string {
	return fmt.Sprintf("/api/devices/%s/location", url.PathEscape(deviceID))
}
