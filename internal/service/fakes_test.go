package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/election-service/internal/domain"
	"github.com/spec-kit/election-service/internal/registry"
	"github.com/spec-kit/election-service/internal/repository"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

// The fakes enforce the same guard and uniqueness semantics the SQL
// schema enforces, so concurrency properties can be exercised without
// a database.

type fakeElectionRepo struct {
	mu        sync.Mutex
	elections map[string]*domain.Election
}

func newFakeElectionRepo() *fakeElectionRepo {
	return &fakeElectionRepo{elections: make(map[string]*domain.Election)}
}

func (r *fakeElectionRepo) put(e *domain.Election) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elections[e.ID] = e
}

func (r *fakeElectionRepo) GetByID(_ context.Context, id string) (*domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elections[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (r *fakeElectionRepo) ListActivatable(_ context.Context, now time.Time) ([]domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Election
	for _, e := range r.elections {
		inWindow := !now.Before(e.StartTime) && now.Before(e.EndTime)
		if inWindow && (e.Status == domain.ElectionStatusApproved ||
			(e.Status == domain.ElectionStatusLive && !e.VoterListGenerated)) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *fakeElectionRepo) ListClosable(_ context.Context, now time.Time) ([]domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Election
	for _, e := range r.elections {
		if e.Status == domain.ElectionStatusLive && !now.Before(e.EndTime) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *fakeElectionRepo) ClaimLive(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elections[id]
	if !ok || e.Status != domain.ElectionStatusApproved {
		return false, nil
	}
	e.Status = domain.ElectionStatusLive
	return true, nil
}

func (r *fakeElectionRepo) ClaimClosed(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elections[id]
	if !ok || e.Status != domain.ElectionStatusLive {
		return false, nil
	}
	e.Status = domain.ElectionStatusClosed
	return true, nil
}

func (r *fakeElectionRepo) MarkVoterListGenerated(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elections[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.VoterListGenerated = true
	return nil
}

func (r *fakeElectionRepo) ClaimEmailDispatch(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.elections[id]
	if !ok || e.EmailsSent {
		return false, nil
	}
	e.EmailsSent = true
	return true, nil
}

type fakeCredentialRepo struct {
	mu          sync.Mutex
	credentials map[string]*domain.Credential
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{credentials: make(map[string]*domain.Credential)}
}

func (r *fakeCredentialRepo) put(c *domain.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.credentials[c.ID] = c
}

func (r *fakeCredentialRepo) get(id string) *domain.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.credentials[id]
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

func (r *fakeCredentialRepo) CreateBatch(_ context.Context, creds []domain.Credential) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, c := range creds {
		duplicate := false
		for _, existing := range r.credentials {
			if existing.ElectionID == c.ElectionID && existing.VoterID == c.VoterID {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		stored := c
		stored.ID = uuid.NewString()
		stored.IssuedAt = time.Now()
		r.credentials[stored.ID] = &stored
		inserted++
	}
	return inserted, nil
}

func (r *fakeCredentialRepo) GetByInvitationToken(_ context.Context, token string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.credentials {
		if c.InvitationToken == token {
			copied := *c
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCredentialRepo) GetByAccessToken(_ context.Context, token string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.credentials {
		if c.AccessToken != nil && *c.AccessToken == token {
			copied := *c
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCredentialRepo) MarkCodeSent(_ context.Context, id, otp string, expiresAt, sentAt time.Time, resendIncrement int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.credentials[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.OTP = &otp
	c.OTPExpiresAt = &expiresAt
	c.LastOTPSentAt = &sentAt
	c.OTPAttempts = 0
	c.ResendCount += resendIncrement
	return nil
}

func (r *fakeCredentialRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.credentials[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	c.OTPAttempts++
	return c.OTPAttempts, nil
}

func (r *fakeCredentialRepo) SaveAccessGrant(_ context.Context, id, accessToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.credentials[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.AccessToken = &accessToken
	c.AccessExpiresAt = &expiresAt
	c.OTP = nil
	c.OTPExpiresAt = nil
	c.OTPAttempts = 0
	return nil
}

func (r *fakeCredentialRepo) ListByElection(_ context.Context, electionID string) ([]domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Credential
	for _, c := range r.credentials {
		if c.ElectionID == electionID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *fakeCredentialRepo) TurnoutByElection(_ context.Context, electionID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	used, total := 0, 0
	for _, c := range r.credentials {
		if c.ElectionID != electionID {
			continue
		}
		total++
		if c.Used {
			used++
		}
	}
	return used, total, nil
}

type fakePortfolioRepo struct {
	portfolios map[string][]domain.Portfolio
}

func newFakePortfolioRepo() *fakePortfolioRepo {
	return &fakePortfolioRepo{portfolios: make(map[string][]domain.Portfolio)}
}

func (r *fakePortfolioRepo) ListByElection(_ context.Context, electionID string) ([]domain.Portfolio, error) {
	return r.portfolios[electionID], nil
}

// fakeBallotRepo replicates the commit transaction: the used check,
// the vote inserts, and the credential consumption happen under one
// lock, all-or-nothing.
type fakeBallotRepo struct {
	mu    sync.Mutex
	creds *fakeCredentialRepo
	votes map[string]domain.Vote
}

func newFakeBallotRepo(creds *fakeCredentialRepo) *fakeBallotRepo {
	return &fakeBallotRepo{creds: creds, votes: make(map[string]domain.Vote)}
}

func voteKey(electionID, portfolioID, fingerprint string) string {
	return fmt.Sprintf("%s|%s|%s", electionID, portfolioID, fingerprint)
}

func (r *fakeBallotRepo) HasVoted(_ context.Context, electionID, fingerprint string) (bool, *time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasVotedLocked(electionID, fingerprint)
}

func (r *fakeBallotRepo) hasVotedLocked(electionID, fingerprint string) (bool, *time.Time, error) {
	var earliest *time.Time
	for _, v := range r.votes {
		if v.ElectionID == electionID && v.VoterFingerprint == fingerprint {
			castAt := v.CastAt
			if earliest == nil || castAt.Before(*earliest) {
				earliest = &castAt
			}
		}
	}
	return earliest != nil, earliest, nil
}

func (r *fakeBallotRepo) SubmitBallot(_ context.Context, credentialID string, votes []domain.Vote) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.creds.mu.Lock()
	defer r.creds.mu.Unlock()
	cred, ok := r.creds.credentials[credentialID]
	if !ok {
		return time.Time{}, pgx.ErrNoRows
	}
	if cred.Used {
		return time.Time{}, apperrors.NewAlreadyVoted(cred.UsedAt)
	}

	for _, v := range votes {
		if existing, dup := r.votes[voteKey(v.ElectionID, v.PortfolioID, v.VoterFingerprint)]; dup {
			castAt := existing.CastAt
			return time.Time{}, apperrors.NewAlreadyVoted(&castAt)
		}
	}

	castAt := time.Now()
	for _, v := range votes {
		v.ID = uuid.NewString()
		v.CastAt = castAt
		r.votes[voteKey(v.ElectionID, v.PortfolioID, v.VoterFingerprint)] = v
	}
	cred.Used = true
	cred.UsedAt = &castAt
	return castAt, nil
}

func (r *fakeBallotRepo) CountVotes(_ context.Context, electionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, v := range r.votes {
		if v.ElectionID == electionID {
			count++
		}
	}
	return count, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *fakeAuditRepo) Append(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) byAction(action domain.AuditAction) []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AuditEntry
	for _, e := range r.entries {
		if e.Action == action {
			result = append(result, e)
		}
	}
	return result
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]repository.VoterSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]repository.VoterSession)}
}

func (s *fakeSessionStore) Put(_ context.Context, accessToken string, session repository.VoterSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[accessToken] = session
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, accessToken string) (*repository.VoterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[accessToken]
	if !ok {
		return nil, errors.New("session not found")
	}
	return &session, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accessToken)
	return nil
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failFor  map[string]bool
	failNext error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]bool)}
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return "", err
	}
	if s.failFor[to] {
		return "", fmt.Errorf("delivery to %s refused", to)
	}
	s.sent = append(s.sent, sentMessage{To: to, Subject: subject, Body: body})
	return uuid.NewString(), nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type failingRegistry struct{}

func (failingRegistry) ResolveEligibleVoters(context.Context, registry.Scope) ([]registry.EligibleVoter, error) {
	return nil, errors.New("registry unreachable")
}
