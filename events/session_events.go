package events

import (
	"encoding/json"
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// SessionCreatedEvent is emitted when a new session is registered.
type SessionCreatedEvent struct {
	SessionID string    `json:"session_id"`
	Topic     string    `json:"topic"`
	Creator   string    `json:"creator"`
	Timestamp time.Time `json:"timestamp"`
}

// ParticipantJoinedEvent is emitted when a participant joins or reconnects.
type ParticipantJoinedEvent struct {
	SessionID        string    `json:"session_id"`
	UserName         string    `json:"user_name"`
	ParticipantCount int       `json:"participant_count"`
	Reconnect        bool      `json:"reconnect"`
	Timestamp        time.Time `json:"timestamp"`
}

// ParticipantLeftEvent is emitted when a bound connection closes.
type ParticipantLeftEvent struct {
	SessionID      string    `json:"session_id"`
	UserName       string    `json:"user_name"`
	SessionDeleted bool      `json:"session_deleted"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageRelayedEvent is emitted when an application message is relayed
// between participants. Content stays opaque to the relay; consumers decide
// whether to interpret it.
type MessageRelayedEvent struct {
	SessionID   string          `json:"session_id"`
	From        string          `json:"from"`
	MessageType string          `json:"message_type"`
	Content     json.RawMessage `json:"content"`
	Timestamp   time.Time       `json:"timestamp"`
}

// SessionExpiredEvent is emitted when the TTL sweep deletes a session.
type SessionExpiredEvent struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// AgreementReachedEvent is emitted when a negotiation produces a final
// agreement draft.
type AgreementReachedEvent struct {
	NegotiationID string    `json:"negotiation_id"`
	SessionID     string    `json:"session_id"`
	Rounds        int       `json:"rounds"`
	Timestamp     time.Time `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	SessionCreatedV1 = helper.EventDefinition[SessionCreatedEvent](
		"relay",
		"SessionCreated",
		"v1",
	)

	ParticipantJoinedV1 = helper.EventDefinition[ParticipantJoinedEvent](
		"relay",
		"ParticipantJoined",
		"v1",
	)

	ParticipantLeftV1 = helper.EventDefinition[ParticipantLeftEvent](
		"relay",
		"ParticipantLeft",
		"v1",
	)

	MessageRelayedV1 = helper.EventDefinition[MessageRelayedEvent](
		"relay",
		"MessageRelayed",
		"v1",
	)

	SessionExpiredV1 = helper.EventDefinition[SessionExpiredEvent](
		"relay",
		"SessionExpired",
		"v1",
	)

	AgreementReachedV1 = helper.EventDefinition[AgreementReachedEvent](
		"negotiator",
		"AgreementReached",
		"v1",
	)
)
