package negotiator

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/negotiation-relay/config"
	"github.com/example/negotiation-relay/events"
)

// Module exposes the negotiation orchestrator as a mono module. It consumes
// relay events to build per-session transcripts and emits AgreementReached.
type Module struct {
	service *Service
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates the negotiator module.
func NewModule(cfg config.Config) (*Module, error) {
	llm := NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	service, err := NewService(llm, cfg.MaxRounds)
	if err != nil {
		return nil, err
	}
	return &Module{service: service}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "negotiator"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.AgreementReachedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to the relay events feeding the
// transcript store.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageRelayedV1, m.handleMessageRelayed, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageRelayed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.SessionExpiredV1, m.handleSessionExpired, m,
	); err != nil {
		return fmt.Errorf("failed to register SessionExpired consumer: %w", err)
	}

	log.Println("[negotiator] Registered event consumers: MessageRelayed, SessionExpired")
	return nil
}

func (m *Module) handleMessageRelayed(_ context.Context, event events.MessageRelayedEvent, _ *mono.Msg) error {
	m.service.AddTranscript(event.SessionID, event.From, string(event.Content))
	return nil
}

func (m *Module) handleSessionExpired(_ context.Context, event events.SessionExpiredEvent, _ *mono.Msg) error {
	m.service.DropTranscript(event.SessionID)
	return nil
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[negotiator] Module started")
	return nil
}

// Stop waits for running exchanges to finish, up to the shutdown deadline.
func (m *Module) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.service.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Println("[negotiator] Stop deadline reached with exchanges still running")
	}
	log.Println("[negotiator] Module stopped")
	return nil
}

// Service returns the negotiation service for the transport layer.
func (m *Module) Service() *Service {
	return m.service
}
