package negotiator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	gonanoid "github.com/jaevor/go-nanoid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/example/negotiation-relay/events"
)

// maxTranscriptSize is the maximum number of relayed messages kept per
// session as negotiation context.
const maxTranscriptSize = 200

// exchangeTimeout bounds one full scripted exchange.
const exchangeTimeout = 10 * time.Minute

// Service orchestrates scripted multi-round negotiations. It keeps its own
// map, isolated from the session store: its operations suspend on network
// calls and must not interleave with relay mutations.
type Service struct {
	negotiations map[string]*Negotiation
	transcripts  map[string][]TranscriptEntry
	mu           sync.Mutex
	llm          Completer
	maxRounds    int
	bus          mono.EventBus
	newID        func() string
	logger       *slog.Logger
	wg           sync.WaitGroup
}

// NewService creates a negotiation service over the given completer.
func NewService(llm Completer, maxRounds int) (*Service, error) {
	newID, err := gonanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to build id generator: %w", err)
	}
	if maxRounds < 1 {
		maxRounds = 1
	}
	return &Service{
		negotiations: make(map[string]*Negotiation),
		transcripts:  make(map[string][]TranscriptEntry),
		llm:          llm,
		maxRounds:    maxRounds,
		newID:        newID,
		logger:       slog.Default(),
	}, nil
}

// SetEventBus wires the EventBus. A nil bus disables publishing.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.bus = bus
}

// Start registers a negotiation and runs the exchange in the background.
// The returned snapshot is immediately serializable; callers poll Get for
// progress.
func (s *Service) Start(_ context.Context, sessionID, topic, partyA, partyB string) (*Negotiation, error) {
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if partyA == "" || partyB == "" {
		return nil, fmt.Errorf("both party names are required")
	}

	n := &Negotiation{
		ID:        s.newID(),
		SessionID: sessionID,
		Topic:     topic,
		PartyA:    partyA,
		PartyB:    partyB,
		Status:    StatusInProgress,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.negotiations[n.ID] = n
	snapshot := copyNegotiation(n)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(n.ID)

	s.logger.Info("negotiation started", "negotiationID", n.ID, "topic", topic)
	return snapshot, nil
}

// Get returns a snapshot of a negotiation.
func (s *Service) Get(id string) (*Negotiation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.negotiations[id]
	if !ok {
		return nil, false
	}
	return copyNegotiation(n), true
}

// AddTranscript records one relayed message as context for future
// negotiations over the same session.
func (s *Service) AddTranscript(sessionID, from, content string) {
	if sessionID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.transcripts[sessionID], TranscriptEntry{
		From:    from,
		Content: content,
		At:      time.Now(),
	})
	if len(entries) > maxTranscriptSize {
		entries = entries[len(entries)-maxTranscriptSize:]
	}
	s.transcripts[sessionID] = entries
}

// DropTranscript discards the accumulated context for a session. Called when
// the session itself is gone.
func (s *Service) DropTranscript(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, sessionID)
}

// Wait blocks until every running exchange has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// run executes one exchange, detached from the request that started it.
func (s *Service) run(id string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), exchangeTimeout)
	defer cancel()

	if err := s.execute(ctx, id); err != nil {
		s.logger.Error("negotiation failed", "negotiationID", id, "error", err)
		s.finish(id, StatusFailed, nil, err.Error())
	}
}

// execute runs the scripted exchange: concurrent opening positions, then
// alternating counter-proposals, then a final joint draft.
func (s *Service) execute(ctx context.Context, id string) error {
	s.mu.Lock()
	n, ok := s.negotiations[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("negotiation not found: %s", id)
	}
	topic, partyA, partyB := n.Topic, n.PartyA, n.PartyB
	background := s.transcriptContext(n.SessionID)
	s.mu.Unlock()

	// Opening positions for both parties, generated concurrently.
	parties := []string{partyA, partyB}
	openings := make([]string, len(parties))
	g, gctx := errgroup.WithContext(ctx)
	for i, party := range parties {
		g.Go(func() error {
			reply, err := s.llm.Complete(gctx, partySystemPrompt(party, topic), openingPrompt(party, topic, background))
			if err != nil {
				return fmt.Errorf("opening position for %s: %w", party, err)
			}
			openings[i] = reply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, party := range parties {
		s.appendRound(id, Round{Number: 1, Party: party, Kind: RoundOpening, Proposal: openings[i], Timestamp: time.Now()})
	}

	// Alternating counter-proposals, each responding to the latest position
	// of the other side.
	last := openings[1]
	for round := 2; round <= s.maxRounds; round++ {
		party := parties[round%2]
		reply, err := s.llm.Complete(ctx, partySystemPrompt(party, topic), counterPrompt(party, topic, last))
		if err != nil {
			return fmt.Errorf("counter-proposal round %d: %w", round, err)
		}
		s.appendRound(id, Round{Number: round, Party: party, Kind: RoundCounter, Proposal: reply, Timestamp: time.Now()})
		last = reply
	}

	// Final joint draft, mediated.
	reply, err := s.llm.Complete(ctx, mediatorSystemPrompt(topic), finalPrompt(topic, s.roundsText(id)))
	if err != nil {
		return fmt.Errorf("final draft: %w", err)
	}
	text := recoverAgreementText(reply)
	s.appendRound(id, Round{Number: s.maxRounds + 1, Party: "mediator", Kind: RoundFinal, Proposal: text, Timestamp: time.Now()})

	agreement := ParseAgreement(text)
	s.finish(id, StatusAgreed, &agreement, "")
	return nil
}

// finish flips the terminal state and publishes the outcome.
func (s *Service) finish(id string, status Status, agreement *Agreement, errMsg string) {
	s.mu.Lock()
	n, ok := s.negotiations[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	n.Status = status
	n.Agreement = agreement
	n.Error = errMsg
	n.CompletedAt = &now
	sessionID := n.SessionID
	rounds := len(n.Rounds)
	s.mu.Unlock()

	if status == StatusAgreed {
		s.logger.Info("negotiation agreed", "negotiationID", id, "rounds", rounds)
		s.publishAgreementReached(id, sessionID, rounds)
	}
}

func (s *Service) appendRound(id string, round Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.negotiations[id]; ok {
		n.Rounds = append(n.Rounds, round)
	}
}

// roundsText renders the exchange so far for the mediator prompt.
func (s *Service) roundsText(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.negotiations[id]
	if !ok {
		return ""
	}
	lines := lo.Map(n.Rounds, func(r Round, _ int) string {
		return fmt.Sprintf("%s (%s): %s", r.Party, r.Kind, r.Proposal)
	})
	return strings.Join(lines, "\n\n")
}

// transcriptContext renders the relayed-message transcript of a session.
// Callers hold s.mu.
func (s *Service) transcriptContext(sessionID string) string {
	entries := s.transcripts[sessionID]
	if len(entries) == 0 {
		return ""
	}
	lines := lo.Map(entries, func(e TranscriptEntry, _ int) string {
		return fmt.Sprintf("%s: %s", e.From, e.Content)
	})
	return strings.Join(lines, "\n")
}

// recoverAgreementText decodes the model's final reply. The model is asked
// for a JSON object but replies wrapped in markdown fences or plain prose
// are recovered rather than rejected.
func recoverAgreementText(reply string) string {
	var parsed struct {
		Agreement string `json:"agreement"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &parsed); err == nil && parsed.Agreement != "" {
		return parsed.Agreement
	}
	return strings.TrimSpace(reply)
}

func (s *Service) publishAgreementReached(id, sessionID string, rounds int) {
	if s.bus == nil {
		return
	}
	err := events.AgreementReachedV1.Publish(s.bus, events.AgreementReachedEvent{
		NegotiationID: id,
		SessionID:     sessionID,
		Rounds:        rounds,
		Timestamp:     time.Now(),
	}, nil)
	if err != nil {
		slog.Warn("Failed to publish AgreementReached event", "error", err)
	}
}

// copyNegotiation returns a snapshot safe to hand out. Callers hold s.mu.
func copyNegotiation(n *Negotiation) *Negotiation {
	out := *n
	out.Rounds = make([]Round, len(n.Rounds))
	copy(out.Rounds, n.Rounds)
	if n.Agreement != nil {
		a := *n.Agreement
		a.Clauses = make([]Clause, len(n.Agreement.Clauses))
		copy(a.Clauses, n.Agreement.Clauses)
		out.Agreement = &a
	}
	if n.CompletedAt != nil {
		t := *n.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
