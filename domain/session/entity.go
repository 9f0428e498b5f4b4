package session

import "time"

// MaxParticipants is the hard cap on participants per session.
const MaxParticipants = 2

// Peer is the live connection bound to a participant. The store holds a
// reference only; ownership of the transport stays with the connection
// registry, and the reference is swapped in place on reconnect.
type Peer interface {
	// ID identifies the underlying transport connection, not the participant.
	ID() string
	// Send serializes and writes a frame. A closed peer is not an error.
	Send(frame any) error
}

// Participant is one identity inside a session. Identity is the display
// name; there is no secret token, so a reconnect with a known name takes
// over that seat. Sessions are short-lived and unlisted, which keeps the
// takeover risk acceptable.
type Participant struct {
	Name    string
	Creator bool
	Peer    Peer
}

// Session is an ephemeral, at-most-two-party negotiation channel identified
// by a caller-chosen string id.
type Session struct {
	ID           string
	Topic        string
	CreatedAt    time.Time
	Participants []*Participant // insertion order = join order
}

// participant returns the participant with the given display name, or nil.
func (s *Session) participant(name string) *Participant {
	for _, p := range s.Participants {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// creator returns the participant flagged as creator, or nil.
func (s *Session) creator() *Participant {
	for _, p := range s.Participants {
		if p.Creator {
			return p
		}
	}
	return nil
}
