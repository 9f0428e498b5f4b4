package relay

import "encoding/json"

// Inbound frame types.
const (
	TypeCreateSession = "create_session"
	TypeJoinSession   = "join_session"
	TypeRelayMessage  = "relay_message"
	TypePing          = "ping"
)

// Outbound frame types.
const (
	TypeSessionCreated    = "session_created"
	TypeParticipantJoined = "participant_joined"
	TypeParticipantLeft   = "participant_left"
	TypeMessageReceived   = "message_received"
	TypeMessageSent       = "message_sent"
	TypeError             = "error"
	TypePong              = "pong"
)

// Error messages are part of the wire contract; clients match on the text.
const (
	msgInvalidFormat   = "Invalid message format"
	msgSessionExists   = "Session already exists"
	msgSessionExpired  = "Session not found or expired"
	msgSessionFull     = "Session is full"
	msgSessionNotFound = "Session not found"
	msgNotInSession    = "Not connected to a session"
)

// inboundFrame is the union of every client frame. Which fields are
// meaningful depends on Type; Content stays opaque.
type inboundFrame struct {
	Type        string          `json:"type"`
	SessionID   string          `json:"sessionId,omitempty"`
	Topic       string          `json:"topic,omitempty"`
	UserName    string          `json:"userName,omitempty"`
	MessageType string          `json:"messageType,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// SessionCreatedFrame acknowledges a successful create or creator reconnect.
type SessionCreatedFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic"`
}

// ParticipantJoinedFrame is broadcast to every participant on join/reconnect.
type ParticipantJoinedFrame struct {
	Type             string `json:"type"`
	UserName         string `json:"userName"`
	Topic            string `json:"topic"`
	ParticipantCount int    `json:"participantCount"`
}

// ParticipantLeftFrame is broadcast to the remaining participants when a
// bound connection closes.
type ParticipantLeftFrame struct {
	Type     string `json:"type"`
	UserName string `json:"userName"`
}

// MessageReceivedFrame carries a relayed payload to the other participants.
type MessageReceivedFrame struct {
	Type        string          `json:"type"`
	MessageType string          `json:"messageType"`
	Content     json.RawMessage `json:"content"`
	From        string          `json:"from"`
	Timestamp   int64           `json:"timestamp"`
}

// MessageSentFrame is the delivery acknowledgment to the sender. It is sent
// whether or not any peer was reachable.
type MessageSentFrame struct {
	Type        string          `json:"type"`
	MessageType string          `json:"messageType"`
	Content     json.RawMessage `json:"content"`
	Timestamp   int64           `json:"timestamp"`
}

// ErrorFrame reports a failure to the offending connection only.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PongFrame answers a client ping.
type PongFrame struct {
	Type string `json:"type"`
}

// PingFrame is the unsolicited periodic keep-alive.
type PingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
