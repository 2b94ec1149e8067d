// internal/common/samsara/client.go
package samsara

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

var (
	// ErrNotFound reports an entity the fleet platform does not know.
	ErrNotFound     = errors.New("FLEET_ENTITY_UNKNOWN")
	ErrLookupFailed = errors.New("FLEET_LOOKUP_FAILED")
)

// FleetData is the capability interface over the live fleet platform. The
// telemetry resolver performs one Lookup per distinct extracted entity.
type FleetData interface {
	Lookup(ctx context.Context, entityType models.EntityType, entityID string) (map[string]string, error)
}

// Config holds the fleet API settings.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Client is the HTTP adapter over the Samsara-compatible fleet API.
type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log.With(map[string]interface{}{"component": "samsara"}),
	}
}

// pathFor maps entity types onto API collections.
func pathFor(entityType models.EntityType) string {
	switch entityType {
	case models.EntityVehicle:
		return "fleet/vehicles"
	case models.EntityDriver:
		return "fleet/drivers"
	case models.EntityLocation:
		return "fleet/addresses"
	default:
		return ""
	}
}

func (c *Client) Lookup(ctx context.Context, entityType models.EntityType, entityID string) (map[string]string, error) {
	path := pathFor(entityType)
	if path == "" {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrLookupFailed, entityType)
	}

	url := fmt.Sprintf("%s/%s/%s", c.config.BaseURL, path, entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, entityType, entityID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrLookupFailed, err)
	}
	if len(apiResponse.Data) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, entityType, entityID)
	}

	return flatten(apiResponse.Data), nil
}

// flatten renders the platform's nested attribute payload as name→value
// strings, one level deep, the shape the synthesizer consumes.
func flatten(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = trimFloat(val)
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		case map[string]interface{}:
			for nk, nv := range val {
				out[k+"."+nk] = fmt.Sprintf("%v", nv)
			}
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
