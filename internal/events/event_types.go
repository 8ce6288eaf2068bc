package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventElectionActivated EventType = "election_activated"
	EventElectionClosed    EventType = "election_closed"
)

// Event represents a lifecycle event emitted by the scheduler.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ElectionID string      `json:"election_id"`
	Actor      string      `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// ElectionActivatedPayload payload.
type ElectionActivatedPayload struct {
	Title              string `json:"title"`
	EligibleVoters     int    `json:"eligible_voters"`
	CredentialsCreated int    `json:"credentials_created"`
	RegistryDegraded   bool   `json:"registry_degraded"`
}

// ElectionClosedPayload payload.
type ElectionClosedPayload struct {
	Title        string   `json:"title"`
	VotesCast    int      `json:"votes_cast"`
	VotersUsed   int      `json:"voters_used"`
	VotersTotal  int      `json:"voters_total"`
	CreatedBy    string   `json:"created_by"`
	ApprovedBy   *string  `json:"approved_by,omitempty"`
	Stakeholders []string `json:"stakeholders,omitempty"`
}
