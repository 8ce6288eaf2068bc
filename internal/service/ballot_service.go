package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/auth"
	"github.com/spec-kit/election-service/internal/domain"
	"github.com/spec-kit/election-service/internal/repository"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

// BallotService accepts completed ballots and enforces
// one-vote-per-voter. The decisive uniqueness check happens inside the
// repository transaction; everything here before that point is
// validation and fast-path rejection.
type BallotService struct {
	credentials repository.CredentialRepository
	elections   repository.ElectionRepository
	portfolios  repository.PortfolioRepository
	ballots     repository.BallotRepository
	sessions    repository.SessionStore
	audit       *AuditService
	logger      *zap.Logger
	clock       func() time.Time
}

// BallotDependencies bundles collaborator requirements.
type BallotDependencies struct {
	CredentialRepo repository.CredentialRepository
	ElectionRepo   repository.ElectionRepository
	PortfolioRepo  repository.PortfolioRepository
	BallotRepo     repository.BallotRepository
	Sessions       repository.SessionStore
	Audit          *AuditService
	Logger         *zap.Logger
}

// NewBallotService builds the service.
func NewBallotService(deps BallotDependencies) *BallotService {
	return &BallotService{
		credentials: deps.CredentialRepo,
		elections:   deps.ElectionRepo,
		portfolios:  deps.PortfolioRepo,
		ballots:     deps.BallotRepo,
		sessions:    deps.Sessions,
		audit:       deps.Audit,
		logger:      deps.Logger,
		clock:       time.Now,
	}
}

// BallotReceipt confirms a committed ballot.
type BallotReceipt struct {
	ElectionID string
	VoteCount  int
	CastAt     time.Time
}

// SubmitBallot validates and atomically commits a complete ballot.
func (s *BallotService) SubmitBallot(ctx context.Context, accessToken string, selections []domain.Selection) (*BallotReceipt, error) {
	if accessToken == "" {
		return nil, apperrors.NewInvalidOrExpiredAccess()
	}

	cred, err := s.credentials.GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidOrExpiredAccess()
		}
		return nil, apperrors.MapError(err)
	}
	now := s.clock()
	if cred.Used {
		return nil, apperrors.NewAlreadyVoted(cred.UsedAt)
	}
	if !cred.AccessValid(now) {
		return nil, apperrors.NewInvalidOrExpiredAccess()
	}

	election, err := s.elections.GetByID(ctx, cred.ElectionID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !election.AcceptsVotes(now) {
		if election.Ended(now) {
			return nil, apperrors.NewElectionEnded()
		}
		return nil, apperrors.NewElectionNotLive()
	}

	fingerprint := auth.VoterFingerprint(cred.VoterID, election.FingerprintSalt)

	if voted, castAt, err := s.ballots.HasVoted(ctx, election.ID, fingerprint); err != nil {
		return nil, apperrors.MapError(err)
	} else if voted {
		return nil, apperrors.NewAlreadyVoted(castAt)
	}

	votes, err := s.buildVotes(ctx, election.ID, fingerprint, selections)
	if err != nil {
		return nil, err
	}

	castAt, err := s.ballots.SubmitBallot(ctx, cred.ID, votes)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// Post-commit side effects are best-effort only.
	if s.sessions != nil {
		if err := s.sessions.Delete(ctx, accessToken); err != nil {
			s.logger.Warn("session invalidation failed", zap.Error(err))
		}
	}
	portfolioIDs := make([]string, len(votes))
	for i, v := range votes {
		portfolioIDs[i] = v.PortfolioID
	}
	// Candidate choices are deliberately absent from the audit trail.
	s.audit.Record(ctx, systemActor, &election.ID, domain.AuditVoteCast, map[string]any{
		"vote_count": len(votes),
		"portfolios": portfolioIDs,
	})

	return &BallotReceipt{
		ElectionID: election.ID,
		VoteCount:  len(votes),
		CastAt:     castAt,
	}, nil
}

// buildVotes validates completeness: every portfolio of the election
// must appear exactly once. A nil candidate is a valid abstention, but
// the portfolio entry itself must be present.
func (s *BallotService) buildVotes(ctx context.Context, electionID, fingerprint string, selections []domain.Selection) ([]domain.Vote, error) {
	portfolios, err := s.portfolios.ListByElection(ctx, electionID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(portfolios) == 0 {
		return nil, apperrors.NewValidationError("election has no portfolios defined", nil)
	}

	known := make(map[string]bool, len(portfolios))
	for _, p := range portfolios {
		known[p.ID] = false
	}

	chosen := make(map[string]*string, len(selections))
	for _, sel := range selections {
		seen, ok := known[sel.PortfolioID]
		if !ok {
			return nil, apperrors.NewUnknownPortfolio(sel.PortfolioID)
		}
		if seen {
			return nil, apperrors.NewValidationError("duplicate selection for portfolio",
				map[string]any{"portfolio_id": sel.PortfolioID})
		}
		known[sel.PortfolioID] = true
		chosen[sel.PortfolioID] = sel.CandidateID
	}

	var missing []string
	for _, p := range portfolios {
		if !known[p.ID] {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewIncompleteBallot(missing)
	}

	votes := make([]domain.Vote, 0, len(portfolios))
	for _, p := range portfolios {
		votes = append(votes, domain.Vote{
			ElectionID:       electionID,
			PortfolioID:      p.ID,
			CandidateID:      chosen[p.ID],
			VoterFingerprint: fingerprint,
		})
	}
	return votes, nil
}
