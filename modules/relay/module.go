package relay

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/go-monolith/mono"

	"github.com/example/negotiation-relay/config"
	"github.com/example/negotiation-relay/domain/session"
	"github.com/example/negotiation-relay/events"
)

// Module owns the session store, the connection registry and the router,
// and runs the two background maintenance loops: the TTL sweep and the
// keep-alive broadcast.
type Module struct {
	store    *session.Store
	registry *Registry
	router   *Router
	cfg      config.Config
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	bus      mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the relay module.
func NewModule(cfg config.Config) *Module {
	store := session.NewStore()
	registry := NewRegistry()
	return &Module{
		store:    store,
		registry: registry,
		router:   NewRouter(store, registry),
		cfg:      cfg,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.bus = bus
	m.router.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.SessionCreatedV1.ToBase(),
		events.ParticipantJoinedV1.ToBase(),
		events.ParticipantLeftV1.ToBase(),
		events.MessageRelayedV1.ToBase(),
		events.SessionExpiredV1.ToBase(),
	}
}

// Start launches the sweep and keep-alive loops. Both are background
// maintenance: they stop with the module and never keep the process alive on
// their own.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(2)
	go m.sweepLoop(ctx)
	go m.keepAliveLoop(ctx)

	log.Printf("[relay] Module started (ttl=%s sweep=%s keepalive=%s)",
		m.cfg.SessionTTL, m.cfg.SweepInterval, m.cfg.KeepAliveInterval)
	return nil
}

// Stop cancels the background loops and waits for them to finish.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	log.Printf("[relay] Module stopped - %d connections, %d sessions at shutdown",
		m.registry.Count(), m.store.Len())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections": m.registry.Count(),
			"sessions":    m.store.Len(),
		},
	}
}

// Router returns the frame router for the transport layer.
func (m *Module) Router() *Router {
	return m.router
}

// Registry returns the connection registry.
func (m *Module) Registry() *Registry {
	return m.registry
}

// Store returns the session store.
func (m *Module) Store() *session.Store {
	return m.store
}

// sweepLoop evicts expired sessions every SweepInterval. Expiry is a hard
// age ceiling independent of activity.
func (m *Module) sweepLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := m.store.Sweep(time.Now(), m.cfg.SessionTTL)
			for _, id := range expired {
				slog.Info("session expired", "sessionID", id, "ttl", m.cfg.SessionTTL)
				m.publishSessionExpired(id)
			}
		}
	}
}

// keepAliveLoop pings every open connection, bound or not, every
// KeepAliveInterval. Advisory only: there is no pong tracking.
func (m *Module) keepAliveLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := PingFrame{Type: TypePing, Timestamp: time.Now().UnixMilli()}
			m.registry.Each(func(c Client) {
				if err := c.Send(frame); err != nil {
					slog.Debug("keep-alive delivery failed", "connID", c.ID(), "error", err)
				}
			})
		}
	}
}

func (m *Module) publishSessionExpired(sessionID string) {
	if m.bus == nil {
		return
	}
	err := events.SessionExpiredV1.Publish(m.bus, events.SessionExpiredEvent{
		SessionID: sessionID,
		Timestamp: time.Now(),
	}, nil)
	if err != nil {
		slog.Warn("Failed to publish SessionExpired event", "error", err)
	}
}
