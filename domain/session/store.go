package session

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Store provides in-memory storage for negotiation sessions.
//
// A single mutex guards every mutation. The semantics of all operations
// assume non-reentrancy: each call is one atomic transition, the same way a
// single-threaded event loop would run it. Fan-out to peers happens outside
// the store, from the snapshots the outcome structs carry.
type Store struct {
	sessions map[string]*Session
	mu       sync.Mutex
}

// NewStore creates a new session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// CreateOutcome reports the result of a successful Create.
type CreateOutcome struct {
	SessionID string
	// Topic is the stored topic. On a creator reconnect this is the original
	// topic, not the one supplied with the reconnecting call.
	Topic       string
	Reconnected bool
}

// Create registers a new session with one creator participant.
//
// If the session already exists and the caller matches the creator identity,
// the creator's connection reference is replaced in place (reconnect). Any
// other caller on a live session id gets ErrSessionExists.
func (s *Store) Create(id, topic, userName string, peer Peer) (CreateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		s.sessions[id] = &Session{
			ID:        id,
			Topic:     topic,
			CreatedAt: time.Now(),
			Participants: []*Participant{
				{Name: userName, Creator: true, Peer: peer},
			},
		}
		return CreateOutcome{SessionID: id, Topic: topic}, nil
	}

	if c := sess.creator(); c != nil && c.Name == userName {
		// Creator returning; the supplied topic is discarded in favor of the
		// stored one.
		c.Peer = peer
		return CreateOutcome{SessionID: id, Topic: sess.Topic, Reconnected: true}, nil
	}

	return CreateOutcome{}, ErrSessionExists
}

// JoinOutcome reports the result of a successful Join.
type JoinOutcome struct {
	SessionID string
	Topic     string
	// Count is the participant count after the join.
	Count int
	// Peers holds every participant's live connection in join order,
	// including the joiner. Broadcast targets.
	Peers []Peer
	// Rejoined is true when an existing participant reconnected instead of a
	// new one being added.
	Rejoined bool
	// Recovered is true when the session was recreated because the id was
	// unknown (typically expired) and a topic was supplied.
	Recovered bool
}

// Join adds a participant to a session, or reconnects one whose display name
// is already present.
//
// An unknown session id is recoverable when a topic is supplied: the session
// is recreated empty with a fresh CreatedAt and the join proceeds. Without a
// topic the join fails with ErrSessionNotFound. A new identity on a session
// at capacity fails with ErrSessionFull.
func (s *Store) Join(id, userName, topic string, peer Peer) (JoinOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := JoinOutcome{SessionID: id}

	sess, exists := s.sessions[id]
	if !exists {
		if topic == "" {
			return JoinOutcome{}, ErrSessionNotFound
		}
		sess = &Session{ID: id, Topic: topic, CreatedAt: time.Now()}
		s.sessions[id] = sess
		out.Recovered = true
	}

	if p := sess.participant(userName); p != nil {
		p.Peer = peer
		out.Rejoined = true
	} else {
		if len(sess.Participants) >= MaxParticipants {
			return JoinOutcome{}, ErrSessionFull
		}
		sess.Participants = append(sess.Participants, &Participant{Name: userName, Peer: peer})
	}

	out.Topic = sess.Topic
	out.Count = len(sess.Participants)
	out.Peers = lo.Map(sess.Participants, func(p *Participant, _ int) Peer { return p.Peer })
	return out, nil
}

// LeaveOutcome reports the result of removing a participant.
type LeaveOutcome struct {
	SessionID string
	UserName  string
	// Remaining holds the live connections of the participants still in the
	// session after the removal.
	Remaining []Peer
	// Deleted is true when the removal emptied the session, which deletes it
	// immediately.
	Deleted bool
}

// RemovePeer removes the participant currently bound to the given connection
// id. Matching is by connection identity, not display name, so a seat taken
// over by a reconnect is not removed when the stale connection closes.
// Idempotent; returns false when no participant holds the connection.
func (s *Store) RemovePeer(peerID string) (LeaveOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		for i, p := range sess.Participants {
			if p.Peer == nil || p.Peer.ID() != peerID {
				continue
			}
			sess.Participants = append(sess.Participants[:i], sess.Participants[i+1:]...)
			out := LeaveOutcome{
				SessionID: id,
				UserName:  p.Name,
				Remaining: lo.Map(sess.Participants, func(p *Participant, _ int) Peer { return p.Peer }),
			}
			if len(sess.Participants) == 0 {
				delete(s.sessions, id)
				out.Deleted = true
			}
			return out, true
		}
	}
	return LeaveOutcome{}, false
}

// PeersExcept returns the live connections of every participant in the
// session other than the given connection. The second result is false when
// the session does not exist.
func (s *Store) PeersExcept(id, peerID string) ([]Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, false
	}

	peers := make([]Peer, 0, len(sess.Participants))
	for _, p := range sess.Participants {
		if p.Peer != nil && p.Peer.ID() != peerID {
			peers = append(peers, p.Peer)
		}
	}
	return peers, true
}

// Sweep deletes every session older than ttl, regardless of participant
// count. This is a hard age ceiling, not an idle timeout. Returns the ids of
// the deleted sessions.
func (s *Store) Sweep(now time.Time, ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > ttl {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ParticipantCount returns the participant count of a session, with false
// when the session does not exist.
func (s *Store) ParticipantCount(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return 0, false
	}
	return len(sess.Participants), true
}

// Topic returns the topic of a session, with false when it does not exist.
func (s *Store) Topic(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return "", false
	}
	return sess.Topic, true
}
