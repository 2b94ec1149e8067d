// internal/common/samsara/client_test.go
package samsara

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:  server.URL,
		APIToken: "token-123",
		Timeout:  5 * time.Second,
	}, logger.NewTestLogger(t))
}

func TestLookupVehicle(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data": {
			"name": "Truck 42",
			"odometerMeters": 182400,
			"location": {"city": "Reno", "latitude": 39.52},
			"engineOn": true
		}}`))
	})

	attrs, err := client.Lookup(context.Background(), models.EntityVehicle, "42")

	require.NoError(t, err)
	assert.Equal(t, "/fleet/vehicles/42", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "Truck 42", attrs["name"])
	assert.Equal(t, "182400", attrs["odometerMeters"], "integral floats render without decimals")
	assert.Equal(t, "Reno", attrs["location.city"], "nested payloads flatten one level")
	assert.Equal(t, "39.52", attrs["location.latitude"])
	assert.Equal(t, "true", attrs["engineOn"])
}

func TestLookupPathsPerEntityType(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"data": {"name": "x"}}`))
	})

	ctx := context.Background()
	_, err := client.Lookup(ctx, models.EntityVehicle, "1")
	require.NoError(t, err)
	_, err = client.Lookup(ctx, models.EntityDriver, "2")
	require.NoError(t, err)
	_, err = client.Lookup(ctx, models.EntityLocation, "3")
	require.NoError(t, err)

	assert.Equal(t, []string{"/fleet/vehicles/1", "/fleet/drivers/2", "/fleet/addresses/3"}, paths)
}

func TestLookupNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Lookup(context.Background(), models.EntityVehicle, "999")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupEmptyPayloadIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}}`))
	})

	_, err := client.Lookup(context.Background(), models.EntityDriver, "77")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Lookup(context.Background(), models.EntityVehicle, "42")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLookupFailed)
}

func TestLookupUnknownEntityType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Lookup(context.Background(), models.EntityType("trailer"), "9")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLookupFailed)
}
