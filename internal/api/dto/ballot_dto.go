package dto

import "time"

// BallotSelection is one portfolio choice. A null candidate_id records
// an explicit abstention.
type BallotSelection struct {
	PortfolioID string  `json:"portfolio_id"`
	CandidateID *string `json:"candidate_id"`
}

// SubmitBallotRequest carries a completed ballot.
type SubmitBallotRequest struct {
	AccessToken string            `json:"access_token"`
	Selections  []BallotSelection `json:"selections"`
}

// BallotReceiptResponse confirms a committed ballot.
type BallotReceiptResponse struct {
	ElectionID string    `json:"election_id"`
	VoteCount  int       `json:"vote_count"`
	CastAt     time.Time `json:"cast_at"`
}
