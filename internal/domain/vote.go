package domain

import "time"

// Vote is one recorded choice for one portfolio. CandidateID is nil for
// an explicit abstention. VoterFingerprint is a one-way derivation of
// the voter identity; rows cannot be traced back to a person.
type Vote struct {
	ID               string
	ElectionID       string
	PortfolioID      string
	CandidateID      *string
	VoterFingerprint string
	CastAt           time.Time
}

// Selection is a voter's choice for a single portfolio as submitted on
// a ballot. A nil CandidateID records an abstention.
type Selection struct {
	PortfolioID string
	CandidateID *string
}
