package wsserver

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/negotiation-relay/config"
	"github.com/example/negotiation-relay/modules/relay"
)

func newTestModule() *Module {
	cfg := config.Config{
		Port:               "0",
		CORSAllowedOrigins: "http://localhost:3000",
		SessionTTL:         time.Hour,
		SweepInterval:      time.Minute,
		KeepAliveInterval:  time.Minute,
	}
	return NewModule(cfg, relay.NewModule(cfg), nil)
}

func TestModule_Routes(t *testing.T) {
	m := newTestModule()
	app := m.newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 0, health["connections"])
	assert.EqualValues(t, 0, health["sessions"])

	// /ws without an upgrade handshake is rejected, not served.
	resp, err = app.Test(httptest.NewRequest("GET", "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestModule_NegotiationsDisabled(t *testing.T) {
	m := newTestModule()
	app := m.newApp()

	for _, path := range []string{
		"/api/v1/negotiations/some-id",
		"/api/v1/negotiations/some-id/agreement",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, path)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/negotiations", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
