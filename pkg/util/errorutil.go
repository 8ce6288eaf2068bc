package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable error codes surfaced to callers. Callers branch on these, not
// on message text.
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeElectionNotLive        = "ELECTION_NOT_LIVE"
	CodeElectionEnded          = "ELECTION_ENDED"
	CodeIdentifierMismatch     = "IDENTIFIER_MISMATCH"
	CodeAttemptsExceeded       = "ATTEMPTS_EXCEEDED"
	CodeCodeExpired            = "CODE_EXPIRED"
	CodeCodeMismatch           = "CODE_MISMATCH"
	CodeResendCooldown         = "RESEND_COOLDOWN"
	CodeResendLimitExceeded    = "RESEND_LIMIT_EXCEEDED"
	CodeInvalidOrExpiredAccess = "INVALID_OR_EXPIRED_ACCESS"
	CodeAlreadyVoted           = "ALREADY_VOTED"
	CodeIncompleteBallot       = "INCOMPLETE_BALLOT"
	CodeUnknownPortfolio       = "UNKNOWN_PORTFOLIO"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInternalError          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "invitation token not recognized", http.StatusUnauthorized, nil)
}

func NewElectionNotLive() error {
	return NewDomainError(CodeElectionNotLive, "election is not open for voting", http.StatusConflict, nil)
}

func NewElectionEnded() error {
	return NewDomainError(CodeElectionEnded, "election has ended", http.StatusConflict, nil)
}

func NewIdentifierMismatch(attemptsRemaining int) error {
	return NewDomainError(CodeIdentifierMismatch, "voter identifier does not match this invitation", http.StatusUnauthorized,
		map[string]any{"attempts_remaining": attemptsRemaining})
}

func NewAttemptsExceeded() error {
	return NewDomainError(CodeAttemptsExceeded, "verification attempts exhausted; request a new code", http.StatusTooManyRequests, nil)
}

func NewCodeExpired() error {
	return NewDomainError(CodeCodeExpired, "one-time code has expired", http.StatusUnauthorized, nil)
}

func NewCodeMismatch(attemptsRemaining int) error {
	return NewDomainError(CodeCodeMismatch, "one-time code is incorrect", http.StatusUnauthorized,
		map[string]any{"attempts_remaining": attemptsRemaining})
}

func NewResendCooldown(retryAfter time.Duration) error {
	return NewDomainError(CodeResendCooldown, "a code was sent recently; wait before requesting another", http.StatusTooManyRequests,
		map[string]any{"retry_after_seconds": int(retryAfter.Seconds())})
}

func NewResendLimitExceeded() error {
	return NewDomainError(CodeResendLimitExceeded, "resend limit reached for this invitation", http.StatusTooManyRequests, nil)
}

func NewInvalidOrExpiredAccess() error {
	return NewDomainError(CodeInvalidOrExpiredAccess, "access token invalid or expired", http.StatusUnauthorized, nil)
}

// NewAlreadyVoted carries the original cast time so callers can show it.
func NewAlreadyVoted(castAt *time.Time) error {
	details := map[string]any{}
	if castAt != nil {
		details["cast_at"] = castAt.UTC().Format(time.RFC3339)
	}
	return NewDomainError(CodeAlreadyVoted, "a ballot has already been cast for this voter", http.StatusConflict, details)
}

func NewIncompleteBallot(missing []string) error {
	return NewDomainError(CodeIncompleteBallot, "ballot must include every portfolio exactly once", http.StatusUnprocessableEntity,
		map[string]any{"missing_portfolios": missing})
}

func NewUnknownPortfolio(portfolioID string) error {
	return NewDomainError(CodeUnknownPortfolio, "ballot references a portfolio not in this election", http.StatusUnprocessableEntity,
		map[string]any{"portfolio_id": portfolioID})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// CodeOf extracts the stable code from an error, or INTERNAL_ERROR.
func CodeOf(err error) string {
	return ToDomainError(err).Code
}
