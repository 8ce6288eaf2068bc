package dto

// SweepResponse summarizes a manually triggered sweep.
type SweepResponse struct {
	Processed []SweepElectionResult `json:"processed"`
}

// SweepElectionResult reports one election touched by a sweep.
type SweepElectionResult struct {
	ElectionID         string `json:"election_id"`
	EligibleVoters     int    `json:"eligible_voters,omitempty"`
	CredentialsCreated int    `json:"credentials_created,omitempty"`
	RegistryDegraded   bool   `json:"registry_degraded,omitempty"`
	InvitesSent        int    `json:"invites_sent,omitempty"`
	InvitesFailed      int    `json:"invites_failed,omitempty"`
	VotesCast          int    `json:"votes_cast,omitempty"`
	VotersUsed         int    `json:"voters_used,omitempty"`
	VotersTotal        int    `json:"voters_total,omitempty"`
}
