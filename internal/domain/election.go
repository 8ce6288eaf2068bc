package domain

import "time"

// ElectionStatus enumerates lifecycle states for elections.
type ElectionStatus string

const (
	ElectionStatusDraft           ElectionStatus = "DRAFT"
	ElectionStatusPendingApproval ElectionStatus = "PENDING_APPROVAL"
	ElectionStatusApproved        ElectionStatus = "APPROVED"
	ElectionStatusLive            ElectionStatus = "LIVE"
	ElectionStatusClosed          ElectionStatus = "CLOSED"
)

// Election is the aggregate driven through the lifecycle scheduler.
// Status and time fields are mutated only by the scheduler; transitions
// into APPROVED happen in an external approval workflow.
type Election struct {
	ID                 string
	Title              string
	Status             ElectionStatus
	DepartmentID       *string
	StartTime          time.Time
	EndTime            time.Time
	VoterListGenerated bool
	EmailsSent         bool
	FingerprintSalt    []byte
	CreatedBy          string
	ApprovedBy         *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// InVotingWindow reports whether now falls inside [StartTime, EndTime).
func (e *Election) InVotingWindow(now time.Time) bool {
	return !now.Before(e.StartTime) && now.Before(e.EndTime)
}

// AcceptsVotes reports whether the election is LIVE and inside its window.
func (e *Election) AcceptsVotes(now time.Time) bool {
	return e.Status == ElectionStatusLive && e.InVotingWindow(now)
}

// Ended reports whether the voting window has passed.
func (e *Election) Ended(now time.Time) bool {
	return !now.Before(e.EndTime)
}
