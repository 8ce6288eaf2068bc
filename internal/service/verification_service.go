package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/auth"
	"github.com/spec-kit/election-service/internal/config"
	"github.com/spec-kit/election-service/internal/domain"
	"github.com/spec-kit/election-service/internal/notify"
	"github.com/spec-kit/election-service/internal/repository"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

const systemActor = "system"

// VerificationService drives the two-factor voter verification flow:
// invitation token plus one-time code, escalating to a short-lived
// access token.
type VerificationService struct {
	credentials repository.CredentialRepository
	elections   repository.ElectionRepository
	sessions    repository.SessionStore
	sender      notify.Sender
	audit       *AuditService
	logger      *zap.Logger
	cfg         config.VerificationConfig
	clock       func() time.Time
}

// VerificationDependencies bundles collaborator requirements.
type VerificationDependencies struct {
	CredentialRepo repository.CredentialRepository
	ElectionRepo   repository.ElectionRepository
	Sessions       repository.SessionStore
	Sender         notify.Sender
	Audit          *AuditService
	Logger         *zap.Logger
}

// NewVerificationService builds the service.
func NewVerificationService(cfg config.Config, deps VerificationDependencies) *VerificationService {
	return &VerificationService{
		credentials: deps.CredentialRepo,
		elections:   deps.ElectionRepo,
		sessions:    deps.Sessions,
		sender:      deps.Sender,
		audit:       deps.Audit,
		logger:      deps.Logger,
		cfg:         cfg.Verification,
		clock:       time.Now,
	}
}

// InitiationResult is returned after a code has been issued.
type InitiationResult struct {
	MaskedEmail       string
	AttemptsRemaining int
	CodeExpiresAt     time.Time
}

// AccessGrant is returned after successful verification.
type AccessGrant struct {
	AccessToken string
	ExpiresAt   time.Time
}

// InitiateVerification looks up an unused credential, issues a fresh
// one-time code, and hands it to the notification collaborator.
func (s *VerificationService) InitiateVerification(ctx context.Context, invitationToken string) (*InitiationResult, error) {
	cred, _, err := s.lookupActive(ctx, invitationToken)
	if err != nil {
		return nil, err
	}
	return s.issueCode(ctx, cred, false)
}

// VerifyCredentials checks the voter identifier and one-time code and,
// on success, escalates the credential to an access token.
func (s *VerificationService) VerifyCredentials(ctx context.Context, invitationToken, voterID, code string) (*AccessGrant, error) {
	cred, _, err := s.lookupActive(ctx, invitationToken)
	if err != nil {
		return nil, err
	}
	now := s.clock()

	if cred.VoterID != voterID {
		attempts, incErr := s.credentials.IncrementAttempts(ctx, cred.ID)
		if incErr != nil {
			return nil, apperrors.MapError(incErr)
		}
		s.recordFailure(ctx, cred, apperrors.CodeIdentifierMismatch)
		return nil, apperrors.NewIdentifierMismatch(s.remaining(attempts))
	}

	// Attempts are checked before the code so a locked credential stays
	// locked even when the caller finally supplies the right code.
	if cred.OTPAttempts >= s.cfg.MaxAttempts {
		s.recordFailure(ctx, cred, apperrors.CodeAttemptsExceeded)
		return nil, apperrors.NewAttemptsExceeded()
	}

	if cred.OTP == nil || cred.OTPExpired(now) {
		s.recordFailure(ctx, cred, apperrors.CodeCodeExpired)
		return nil, apperrors.NewCodeExpired()
	}

	if *cred.OTP != code {
		attempts, incErr := s.credentials.IncrementAttempts(ctx, cred.ID)
		if incErr != nil {
			return nil, apperrors.MapError(incErr)
		}
		s.recordFailure(ctx, cred, apperrors.CodeCodeMismatch)
		return nil, apperrors.NewCodeMismatch(s.remaining(attempts))
	}

	accessToken, err := auth.GenerateAccessToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	expiresAt := now.Add(s.cfg.AccessTTL())
	if err := s.credentials.SaveAccessGrant(ctx, cred.ID, accessToken, expiresAt); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.sessions != nil {
		session := repository.VoterSession{
			CredentialID: cred.ID,
			ElectionID:   cred.ElectionID,
			IssuedAt:     now,
		}
		if err := s.sessions.Put(ctx, accessToken, session, s.cfg.AccessTTL()); err != nil {
			s.logger.Warn("session record write failed", zap.Error(err))
		}
	}

	s.audit.Record(ctx, systemActor, &cred.ElectionID, domain.AuditVerificationSuccess, map[string]any{
		"credential_id": cred.ID,
	})
	return &AccessGrant{AccessToken: accessToken, ExpiresAt: expiresAt}, nil
}

// ResendCode re-issues a one-time code, resetting the attempt counter.
// This is the only recovery path out of the locked state.
func (s *VerificationService) ResendCode(ctx context.Context, invitationToken string) (*InitiationResult, error) {
	cred, _, err := s.lookupActive(ctx, invitationToken)
	if err != nil {
		return nil, err
	}
	now := s.clock()

	if cred.LastOTPSentAt != nil {
		elapsed := now.Sub(*cred.LastOTPSentAt)
		if elapsed < s.cfg.ResendCooldown() {
			return nil, apperrors.NewResendCooldown(s.cfg.ResendCooldown() - elapsed)
		}
	}
	if cred.ResendCount >= s.cfg.MaxResends {
		return nil, apperrors.NewResendLimitExceeded()
	}

	return s.issueCode(ctx, cred, true)
}

// lookupActive resolves the credential and enforces the shared
// preconditions: known token, unused credential, LIVE election inside
// its voting window.
func (s *VerificationService) lookupActive(ctx context.Context, invitationToken string) (*domain.Credential, *domain.Election, error) {
	cred, err := s.credentials.GetByInvitationToken(ctx, invitationToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewInvalidToken()
		}
		return nil, nil, apperrors.MapError(err)
	}
	if cred.Used {
		return nil, nil, apperrors.NewAlreadyVoted(cred.UsedAt)
	}

	election, err := s.elections.GetByID(ctx, cred.ElectionID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	now := s.clock()
	if !election.AcceptsVotes(now) {
		if election.Ended(now) {
			return nil, nil, apperrors.NewElectionEnded()
		}
		return nil, nil, apperrors.NewElectionNotLive()
	}
	return cred, election, nil
}

func (s *VerificationService) issueCode(ctx context.Context, cred *domain.Credential, resend bool) (*InitiationResult, error) {
	code, err := auth.GenerateOTP(s.cfg.OTPDigits)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock()
	expiresAt := now.Add(s.cfg.OTPTTL())

	increment := 0
	if resend {
		increment = 1
	}
	if err := s.credentials.MarkCodeSent(ctx, cred.ID, code, expiresAt, now, increment); err != nil {
		return nil, apperrors.MapError(err)
	}

	action := domain.AuditOTPSent
	if resend {
		action = domain.AuditOTPResent
	}

	// Delivery is a collaborator call; its failure is audited but never
	// fails the issuance.
	if _, err := s.sender.Send(ctx, cred.Email, "Your voting verification code", code); err != nil {
		s.logger.Warn("otp delivery failed",
			zap.String("credential_id", cred.ID),
			zap.Error(err))
		s.audit.Record(ctx, systemActor, &cred.ElectionID, domain.AuditOTPSendFailed, map[string]any{
			"credential_id": cred.ID,
			"reason":        err.Error(),
		})
	} else {
		s.audit.Record(ctx, systemActor, &cred.ElectionID, action, map[string]any{
			"credential_id": cred.ID,
		})
	}

	return &InitiationResult{
		MaskedEmail:       cred.MaskedEmail(),
		AttemptsRemaining: s.cfg.MaxAttempts,
		CodeExpiresAt:     expiresAt,
	}, nil
}

func (s *VerificationService) recordFailure(ctx context.Context, cred *domain.Credential, code string) {
	s.audit.Record(ctx, systemActor, &cred.ElectionID, domain.AuditVerificationFailed, map[string]any{
		"credential_id": cred.ID,
		"reason":        code,
	})
}

func (s *VerificationService) remaining(attempts int) int {
	remaining := s.cfg.MaxAttempts - attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
