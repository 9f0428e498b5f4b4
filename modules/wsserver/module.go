package wsserver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/negotiation-relay/config"
	"github.com/example/negotiation-relay/modules/relay"
)

// Module implements the transport layer: the WebSocket endpoint the relay
// protocol runs over, the health endpoint and the negotiation REST surface.
type Module struct {
	app      *fiber.App
	handlers *Handlers
	cfg      config.Config
	relay    *relay.Module
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the transport module. negotiations may be nil when the
// orchestrator is disabled.
func NewModule(cfg config.Config, relayModule *relay.Module, negotiations NegotiationService) *Module {
	return &Module{
		cfg:      cfg,
		relay:    relayModule,
		handlers: NewHandlers(relayModule, negotiations),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// newApp builds the Fiber app with its middleware and routes.
func (m *Module) newApp() *fiber.App {
	m.app = fiber.New(fiber.Config{
		AppName:               "Negotiation Relay",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		// WebSocket upgrades are long-lived; the read loop logs its own
		// lifecycle.
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Upgrade") == "websocket"
		},
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes()
	return m.app
}

// Start initializes and starts the Fiber server.
func (m *Module) Start(_ context.Context) error {
	m.newApp()

	// Start server in goroutine with startup error detection.
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		// Server started successfully.
	}

	m.handlers.logger.Info("server started", "port", m.cfg.Port)
	return nil
}

// Stop gracefully shuts down the server, closing all connections.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	m.handlers.logger.Info("server stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":        m.cfg.Port,
			"connections": m.relay.Registry().Count(),
		},
	}
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade middleware.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	api := m.app.Group("/api/v1")
	api.Post("/negotiations", m.handlers.StartNegotiation)
	api.Get("/negotiations/:id", m.handlers.GetNegotiation)
	api.Get("/negotiations/:id/agreement", m.handlers.GetAgreement)
}

// errorHandler handles Fiber errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.handlers.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
