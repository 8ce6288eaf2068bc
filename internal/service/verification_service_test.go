package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/config"
	"github.com/spec-kit/election-service/internal/domain"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

var testBase = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testVerificationConfig() config.Config {
	return config.Config{Verification: config.VerificationConfig{
		OTPDigits:             6,
		OTPTTLMinutes:         10,
		MaxAttempts:           3,
		ResendCooldownSeconds: 60,
		MaxResends:            5,
		AccessTTLMinutes:      60,
	}}
}

type verificationFixture struct {
	svc       *VerificationService
	creds     *fakeCredentialRepo
	elections *fakeElectionRepo
	sender    *fakeSender
	audit     *fakeAuditRepo
	sessions  *fakeSessionStore
	now       *time.Time
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	creds := newFakeCredentialRepo()
	elections := newFakeElectionRepo()
	sender := newFakeSender()
	audit := &fakeAuditRepo{}
	sessions := newFakeSessionStore()

	svc := NewVerificationService(testVerificationConfig(), VerificationDependencies{
		CredentialRepo: creds,
		ElectionRepo:   elections,
		Sessions:       sessions,
		Sender:         sender,
		Audit:          NewAuditService(audit, zap.NewNop()),
		Logger:         zap.NewNop(),
	})
	now := testBase
	svc.clock = func() time.Time { return now }

	return &verificationFixture{
		svc:       svc,
		creds:     creds,
		elections: elections,
		sender:    sender,
		audit:     audit,
		sessions:  sessions,
		now:       &now,
	}
}

func (f *verificationFixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func (f *verificationFixture) seedLiveElection() *domain.Election {
	election := &domain.Election{
		ID:        uuid.NewString(),
		Title:     "Student Council 2026",
		Status:    domain.ElectionStatusLive,
		StartTime: testBase.Add(-time.Hour),
		EndTime:   testBase.Add(time.Hour),
	}
	f.elections.put(election)
	return election
}

func (f *verificationFixture) seedCredential(electionID string) *domain.Credential {
	cred := &domain.Credential{
		ElectionID:      electionID,
		VoterID:         "U-1001",
		VoterName:       "Ama Mensah",
		Email:           "ama.mensah@example.edu",
		InvitationToken: uuid.NewString(),
	}
	f.creds.put(cred)
	return cred
}

func TestInitiateVerificationIssuesCode(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	result, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)
	assert.Equal(t, "a********h@example.edu", result.MaskedEmail)
	assert.Equal(t, 3, result.AttemptsRemaining)
	assert.Equal(t, testBase.Add(10*time.Minute), result.CodeExpiresAt)

	stored := f.creds.get(cred.ID)
	require.NotNil(t, stored.OTP)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), *stored.OTP)
	assert.Equal(t, 0, stored.OTPAttempts)

	require.Equal(t, 1, f.sender.sentCount())
	assert.Equal(t, cred.Email, f.sender.sent[0].To)
	assert.Len(t, f.audit.byAction(domain.AuditOTPSent), 1)
}

func TestInitiateVerificationUnknownToken(t *testing.T) {
	f := newVerificationFixture(t)
	f.seedLiveElection()

	_, err := f.svc.InitiateVerification(context.Background(), "no-such-token")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidToken, apperrors.CodeOf(err))
}

func TestInitiateVerificationElectionNotLive(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	election.Status = domain.ElectionStatusApproved
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeElectionNotLive, apperrors.CodeOf(err))
}

func TestInitiateVerificationElectionEnded(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	f.advance(2 * time.Hour)
	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeElectionEnded, apperrors.CodeOf(err))
}

func TestVerifyCredentialsIssuesAccessToken(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)
	code := *f.creds.get(cred.ID).OTP

	grant, err := f.svc.VerifyCredentials(context.Background(), cred.InvitationToken, cred.VoterID, code)
	require.NoError(t, err)
	assert.Len(t, grant.AccessToken, 64)
	assert.Equal(t, testBase.Add(time.Hour), grant.ExpiresAt)

	stored := f.creds.get(cred.ID)
	require.NotNil(t, stored.AccessToken)
	assert.Equal(t, grant.AccessToken, *stored.AccessToken)
	assert.Nil(t, stored.OTP)
	assert.Equal(t, 0, stored.OTPAttempts)

	session, err := f.sessions.Get(context.Background(), grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, cred.ID, session.CredentialID)
	assert.Len(t, f.audit.byAction(domain.AuditVerificationSuccess), 1)
}

func TestVerifyCredentialsIdentifierMismatch(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)
	code := *f.creds.get(cred.ID).OTP

	_, err = f.svc.VerifyCredentials(context.Background(), cred.InvitationToken, "U-9999", code)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIdentifierMismatch, apperrors.CodeOf(err))
	assert.Equal(t, 1, f.creds.get(cred.ID).OTPAttempts)
}

func TestVerifyCredentialsLockoutAndResendRecovery(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)
	code := *f.creds.get(cred.ID).OTP
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		_, err := f.svc.VerifyCredentials(context.Background(), cred.InvitationToken, cred.VoterID, wrong)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeCodeMismatch, apperrors.CodeOf(err))
	}

	// Even the correct code is rejected once attempts are exhausted.
	_, err = f.svc.VerifyCredentials(context.Background(), cred.InvitationToken, cred.VoterID, code)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAttemptsExceeded, apperrors.CodeOf(err))

	f.advance(61 * time.Second)
	_, err = f.svc.ResendCode(context.Background(), cred.InvitationToken)
	require.NoError(t, err)

	stored := f.creds.get(cred.ID)
	assert.Equal(t, 0, stored.OTPAttempts)
	assert.Equal(t, 1, stored.ResendCount)

	_, err = f.svc.VerifyCredentials(context.Background(), cred.InvitationToken, cred.VoterID, *stored.OTP)
	require.NoError(t, err)
}

func TestVerifyCredentialsCodeExpired(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)
	code := *f.creds.get(cred.ID).OTP

	f.advance(11 * time.Minute)
	_, err = f.svc.VerifyCredentials(context.Background(), cred.InvitationToken, cred.VoterID, code)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCodeExpired, apperrors.CodeOf(err))
}

func TestResendCodeCooldown(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)

	f.advance(30 * time.Second)
	_, err = f.svc.ResendCode(context.Background(), cred.InvitationToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeResendCooldown, apperrors.CodeOf(err))
}

func TestResendCodeLimitExceeded(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.advance(61 * time.Second)
		_, err := f.svc.ResendCode(context.Background(), cred.InvitationToken)
		require.NoError(t, err)
	}

	f.advance(61 * time.Second)
	_, err = f.svc.ResendCode(context.Background(), cred.InvitationToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeResendLimitExceeded, apperrors.CodeOf(err))
}

func TestVerificationRejectsConsumedCredential(t *testing.T) {
	f := newVerificationFixture(t)
	election := f.seedLiveElection()
	cred := f.seedCredential(election.ID)
	usedAt := testBase.Add(-time.Minute)
	stored := f.creds.credentials[cred.ID]
	stored.Used = true
	stored.UsedAt = &usedAt

	_, err := f.svc.InitiateVerification(context.Background(), cred.InvitationToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeAlreadyVoted, apperrors.CodeOf(err))
}
