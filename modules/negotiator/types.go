package negotiator

import "time"

// Status is the lifecycle state of a negotiation.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusAgreed     Status = "agreed"
	StatusFailed     Status = "failed"
)

// Round kinds.
const (
	RoundOpening = "opening"
	RoundCounter = "counter"
	RoundFinal   = "final"
)

// Negotiation is one scripted multi-round exchange between two parties,
// mediated by the language model.
type Negotiation struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"sessionId,omitempty"`
	Topic       string     `json:"topic"`
	PartyA      string     `json:"partyA"`
	PartyB      string     `json:"partyB"`
	Status      Status     `json:"status"`
	Rounds      []Round    `json:"rounds"`
	Agreement   *Agreement `json:"agreement,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Round is one position taken by one party.
type Round struct {
	Number    int       `json:"number"`
	Party     string    `json:"party"`
	Kind      string    `json:"kind"` // "opening", "counter", "final"
	Proposal  string    `json:"proposal"`
	Timestamp time.Time `json:"timestamp"`
}

// Agreement is the final draft plus its structured clauses.
type Agreement struct {
	Text    string   `json:"text"`
	Clauses []Clause `json:"clauses"`
}

// Clause is one numbered section of the agreement text.
type Clause struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// TranscriptEntry is one relayed message accumulated as negotiation context.
type TranscriptEntry struct {
	From    string    `json:"from"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
