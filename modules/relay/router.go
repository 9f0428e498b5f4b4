package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"

	"github.com/example/negotiation-relay/domain/session"
	"github.com/example/negotiation-relay/events"
)

// Router decodes inbound frames, dispatches them by type and fans out the
// resulting notifications. Every failure is converted into a single error
// frame for the offending connection; nothing propagates to other sessions
// or takes down the read loop.
type Router struct {
	store    *session.Store
	registry *Registry
	bus      mono.EventBus
	logger   *slog.Logger
}

// NewRouter creates a router over the given store and registry.
func NewRouter(store *session.Store, registry *Registry) *Router {
	return &Router{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
	}
}

// SetEventBus wires the EventBus. Events are a secondary flow; a nil bus
// (tests) just disables publishing.
func (r *Router) SetEventBus(bus mono.EventBus) {
	r.bus = bus
}

// HandleFrame processes one inbound frame. One malformed or unlucky message
// must not drop the connection, so panics are recovered and logged here.
func (r *Router) HandleFrame(c Client, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while handling frame", "connID", c.ID(), "panic", rec)
		}
	}()

	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		r.sendError(c, msgInvalidFormat)
		return
	}

	switch frame.Type {
	case TypeCreateSession:
		r.handleCreate(c, frame)
	case TypeJoinSession:
		r.handleJoin(c, frame)
	case TypeRelayMessage:
		r.handleRelay(c, frame)
	case TypePing:
		r.send(c, PongFrame{Type: TypePong})
	default:
		// Unknown types are dropped, not errored, for forward compatibility.
		r.logger.Warn("dropping frame of unknown type", "connID", c.ID(), "type", frame.Type)
	}
}

// handleCreate processes create_session frames.
func (r *Router) handleCreate(c Client, frame inboundFrame) {
	out, err := r.store.Create(frame.SessionID, frame.Topic, frame.UserName, c)
	if err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			r.sendError(c, msgSessionExists)
			return
		}
		r.logger.Error("create session failed", "sessionID", frame.SessionID, "error", err)
		r.sendError(c, msgSessionExists)
		return
	}

	c.Bind(frame.SessionID, frame.UserName)
	r.send(c, SessionCreatedFrame{
		Type:      TypeSessionCreated,
		SessionID: out.SessionID,
		Topic:     out.Topic,
	})

	r.logger.Info("session created",
		"sessionID", out.SessionID,
		"userName", frame.UserName,
		"reconnect", out.Reconnected)

	if !out.Reconnected {
		r.publishSessionCreated(out.SessionID, out.Topic, frame.UserName)
	}
}

// handleJoin processes join_session frames.
func (r *Router) handleJoin(c Client, frame inboundFrame) {
	out, err := r.store.Join(frame.SessionID, frame.UserName, frame.Topic, c)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			r.sendError(c, msgSessionExpired)
		case errors.Is(err, session.ErrSessionFull):
			r.sendError(c, msgSessionFull)
		default:
			r.logger.Error("join session failed", "sessionID", frame.SessionID, "error", err)
			r.sendError(c, msgSessionExpired)
		}
		return
	}

	c.Bind(frame.SessionID, frame.UserName)

	// Everyone in the session hears about the join, the joiner included.
	// Each send is guarded on its own so one unreachable peer cannot abort
	// delivery to the others.
	joined := ParticipantJoinedFrame{
		Type:             TypeParticipantJoined,
		UserName:         frame.UserName,
		Topic:            out.Topic,
		ParticipantCount: out.Count,
	}
	for _, p := range out.Peers {
		if err := p.Send(joined); err != nil {
			r.logger.Warn("participant_joined delivery failed", "connID", p.ID(), "error", err)
		}
	}

	r.logger.Info("participant joined",
		"sessionID", frame.SessionID,
		"userName", frame.UserName,
		"count", out.Count,
		"reconnect", out.Rejoined,
		"recovered", out.Recovered)

	r.publishParticipantJoined(frame.SessionID, frame.UserName, out.Count, out.Rejoined)
}

// handleRelay processes relay_message frames. The payload is forwarded
// untouched to every other participant; the sender always gets an ack.
func (r *Router) handleRelay(c Client, frame inboundFrame) {
	sessionID, userName, bound := c.Binding()
	if !bound {
		r.sendError(c, msgNotInSession)
		return
	}

	peers, ok := r.store.PeersExcept(sessionID, c.ID())
	if !ok {
		r.sendError(c, msgSessionNotFound)
		return
	}

	now := time.Now()
	ts := now.UnixMilli()

	received := MessageReceivedFrame{
		Type:        TypeMessageReceived,
		MessageType: frame.MessageType,
		Content:     frame.Content,
		From:        userName,
		Timestamp:   ts,
	}
	for _, p := range peers {
		if err := p.Send(received); err != nil {
			r.logger.Warn("message_received delivery failed", "connID", p.ID(), "error", err)
		}
	}

	r.send(c, MessageSentFrame{
		Type:        TypeMessageSent,
		MessageType: frame.MessageType,
		Content:     frame.Content,
		Timestamp:   ts,
	})

	r.publishMessageRelayed(sessionID, userName, frame.MessageType, frame.Content, now)
}

// HandleDisconnect runs on transport close/error. It must be idempotent and
// must never panic, since it runs during teardown.
func (r *Router) HandleDisconnect(c Client) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic during disconnect cleanup", "connID", c.ID(), "panic", rec)
		}
	}()

	r.registry.Remove(c.ID())

	out, ok := r.store.RemovePeer(c.ID())
	if !ok {
		return
	}

	left := ParticipantLeftFrame{Type: TypeParticipantLeft, UserName: out.UserName}
	for _, p := range out.Remaining {
		if err := p.Send(left); err != nil {
			r.logger.Warn("participant_left delivery failed", "connID", p.ID(), "error", err)
		}
	}

	r.logger.Info("participant disconnected",
		"sessionID", out.SessionID,
		"userName", out.UserName,
		"sessionDeleted", out.Deleted)

	r.publishParticipantLeft(out.SessionID, out.UserName, out.Deleted)
}

// send writes a frame to a single connection, logging delivery failures.
func (r *Router) send(c Client, frame any) {
	if err := c.Send(frame); err != nil {
		r.logger.Warn("frame delivery failed", "connID", c.ID(), "error", err)
	}
}

// sendError reports a failure to the offending connection only.
func (r *Router) sendError(c Client, message string) {
	r.send(c, ErrorFrame{Type: TypeError, Message: message})
}

// Event publishing. Failures are logged and never fail the triggering
// operation.

func (r *Router) publishSessionCreated(sessionID, topic, creator string) {
	if r.bus == nil {
		return
	}
	err := events.SessionCreatedV1.Publish(r.bus, events.SessionCreatedEvent{
		SessionID: sessionID,
		Topic:     topic,
		Creator:   creator,
		Timestamp: time.Now(),
	}, nil)
	if err != nil {
		slog.Warn("Failed to publish SessionCreated event", "error", err)
	}
}

func (r *Router) publishParticipantJoined(sessionID, userName string, count int, reconnect bool) {
	if r.bus == nil {
		return
	}
	err := events.ParticipantJoinedV1.Publish(r.bus, events.ParticipantJoinedEvent{
		SessionID:        sessionID,
		UserName:         userName,
		ParticipantCount: count,
		Reconnect:        reconnect,
		Timestamp:        time.Now(),
	}, nil)
	if err != nil {
		slog.Warn("Failed to publish ParticipantJoined event", "error", err)
	}
}

func (r *Router) publishParticipantLeft(sessionID, userName string, deleted bool) {
	if r.bus == nil {
		return
	}
	err := events.ParticipantLeftV1.Publish(r.bus, events.ParticipantLeftEvent{
		SessionID:      sessionID,
		UserName:       userName,
		SessionDeleted: deleted,
		Timestamp:      time.Now(),
	}, nil)
	if err != nil {
		slog.Warn("Failed to publish ParticipantLeft event", "error", err)
	}
}

func (r *Router) publishMessageRelayed(sessionID, from, messageType string, content json.RawMessage, at time.Time) {
	if r.bus == nil {
		return
	}
	err := events.MessageRelayedV1.Publish(r.bus, events.MessageRelayedEvent{
		SessionID:   sessionID,
		From:        from,
		MessageType: messageType,
		Content:     content,
		Timestamp:   at,
	}, nil)
	if err != nil {
		slog.Warn("Failed to publish MessageRelayed event", "error", err)
	}
}
