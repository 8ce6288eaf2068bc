package domain

import "time"

// Portfolio is one position voted on within an election. Portfolio
// administration happens outside this service; the ballot engine only
// reads them to validate completeness.
type Portfolio struct {
	ID          string
	ElectionID  string
	Title       string
	BallotOrder int
	CreatedAt   time.Time
}
