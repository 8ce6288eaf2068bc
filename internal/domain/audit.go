package domain

import "time"

// AuditAction enumerates recorded fact kinds.
type AuditAction string

const (
	AuditOTPSent              AuditAction = "OTP_SENT"
	AuditOTPResent            AuditAction = "OTP_RESENT"
	AuditOTPSendFailed        AuditAction = "OTP_SEND_FAILED"
	AuditVerificationSuccess  AuditAction = "VERIFICATION_SUCCESS"
	AuditVerificationFailed   AuditAction = "VERIFICATION_FAILED"
	AuditVoteCast             AuditAction = "VOTE_CAST"
	AuditElectionActivated    AuditAction = "ELECTION_ACTIVATED"
	AuditElectionClosed       AuditAction = "ELECTION_CLOSED"
	AuditInvitesSent          AuditAction = "INVITES_SENT"
	AuditInviteDispatchFailed AuditAction = "INVITE_DISPATCH_FAILED"
)

// AuditEntry is an append-only fact record. Entries are never mutated
// or deleted, and a failed write never rolls back the operation it
// describes.
type AuditEntry struct {
	ID         string
	Actor      string
	ElectionID *string
	Action     AuditAction
	Metadata   map[string]any
	CreatedAt  time.Time
}
