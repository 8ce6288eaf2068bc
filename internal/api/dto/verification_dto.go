package dto

import "time"

// InitiateVerificationRequest starts the two-factor flow.
type InitiateVerificationRequest struct {
	InvitationToken string `json:"invitation_token"`
}

// VerifyCredentialsRequest confirms the one-time code.
type VerifyCredentialsRequest struct {
	InvitationToken string `json:"invitation_token"`
	VoterID         string `json:"voter_id"`
	Code            string `json:"code"`
}

// ResendCodeRequest asks for a fresh one-time code.
type ResendCodeRequest struct {
	InvitationToken string `json:"invitation_token"`
}

// CodeIssuedResponse reports a successful code send.
type CodeIssuedResponse struct {
	MaskedEmail       string    `json:"masked_email"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	CodeExpiresAt     time.Time `json:"code_expires_at"`
}

// AccessGrantResponse carries the issued access token.
type AccessGrantResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
