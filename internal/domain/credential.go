package domain

import (
	"strings"
	"time"
)

// CredentialState describes where a voter's credential sits in the
// verification flow. States are derived, not stored: the row only holds
// the raw fields and the state machine reads them against "now".
type CredentialState string

const (
	CredentialStateIssued   CredentialState = "ISSUED"
	CredentialStateCodeSent CredentialState = "CODE_SENT"
	CredentialStateVerified CredentialState = "VERIFIED"
	CredentialStateConsumed CredentialState = "CONSUMED"
	CredentialStateLocked   CredentialState = "LOCKED"
	CredentialStateExpired  CredentialState = "EXPIRED"
)

// Credential tracks one voter's invitation, one-time code, and access
// token for one election. Exactly one exists per (election, voter).
type Credential struct {
	ID              string
	ElectionID      string
	VoterID         string
	VoterName       string
	Email           string
	InvitationToken string
	OTP             *string
	OTPExpiresAt    *time.Time
	OTPAttempts     int
	ResendCount     int
	LastOTPSentAt   *time.Time
	AccessToken     *string
	AccessExpiresAt *time.Time
	Used            bool
	UsedAt          *time.Time
	IssuedAt        time.Time
}

// State derives the credential state machine position.
func (c *Credential) State(now time.Time, maxAttempts int) CredentialState {
	switch {
	case c.Used:
		return CredentialStateConsumed
	case c.OTPAttempts >= maxAttempts:
		return CredentialStateLocked
	case c.AccessToken != nil && c.AccessExpiresAt != nil && now.Before(*c.AccessExpiresAt):
		return CredentialStateVerified
	case c.OTP != nil && c.OTPExpiresAt != nil && now.After(*c.OTPExpiresAt):
		return CredentialStateExpired
	case c.OTP != nil:
		return CredentialStateCodeSent
	default:
		return CredentialStateIssued
	}
}

// AccessValid reports whether the access token can still authorize a ballot.
func (c *Credential) AccessValid(now time.Time) bool {
	return c.AccessToken != nil && c.AccessExpiresAt != nil && now.Before(*c.AccessExpiresAt)
}

// OTPExpired reports whether the current one-time code is past its expiry.
func (c *Credential) OTPExpired(now time.Time) bool {
	return c.OTPExpiresAt == nil || now.After(*c.OTPExpiresAt)
}

// MaskedEmail returns the contact address with most of the local part
// hidden, safe to echo back to an unverified caller.
func (c *Credential) MaskedEmail() string {
	at := strings.Index(c.Email, "@")
	if at <= 0 {
		return c.Email
	}
	local, rest := c.Email[:at], c.Email[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + rest
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + rest
}
