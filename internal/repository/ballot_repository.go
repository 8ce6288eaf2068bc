package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/election-service/internal/domain"
	apperrors "github.com/spec-kit/election-service/pkg/util"
)

const uniqueViolationCode = "23505"

// BallotRepository owns the ballot commit transaction. The uniqueness
// check and the vote inserts share one transaction with the credential
// consumption, so the database boundary is the only concurrency
// mechanism: of N racing submissions for the same fingerprint, exactly
// one commits.
type BallotRepository interface {
	HasVoted(ctx context.Context, electionID, fingerprint string) (bool, *time.Time, error)
	SubmitBallot(ctx context.Context, credentialID string, votes []domain.Vote) (time.Time, error)
	CountVotes(ctx context.Context, electionID string) (int, error)
}

type ballotRepository struct {
	pool *pgxpool.Pool
}

// NewBallotRepository instantiates repository.
func NewBallotRepository(pool *pgxpool.Pool) BallotRepository {
	return &ballotRepository{pool: pool}
}

// HasVoted reports whether any vote rows exist for the fingerprint and
// returns the earliest cast time. Callers use this as a fast pre-check;
// SubmitBallot re-enforces the invariant inside its transaction.
func (r *ballotRepository) HasVoted(ctx context.Context, electionID, fingerprint string) (bool, *time.Time, error) {
	const query = `
        SELECT MIN(cast_at) FROM votes
        WHERE election_id=$1 AND voter_fingerprint=$2`
	var castAt *time.Time
	if err := r.pool.QueryRow(ctx, query, electionID, fingerprint).Scan(&castAt); err != nil {
		return false, nil, err
	}
	return castAt != nil, castAt, nil
}

// SubmitBallot atomically inserts all vote rows and consumes the
// credential. Any failure aborts the whole transaction; a uniqueness
// violation on the vote key surfaces as ALREADY_VOTED with the original
// cast time.
func (r *ballotRepository) SubmitBallot(ctx context.Context, credentialID string, votes []domain.Vote) (time.Time, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var used bool
	var usedAt *time.Time
	const lockQuery = `SELECT used, used_at FROM credentials WHERE id=$1 FOR UPDATE`
	if err := tx.QueryRow(ctx, lockQuery, credentialID).Scan(&used, &usedAt); err != nil {
		return time.Time{}, err
	}
	if used {
		return time.Time{}, apperrors.NewAlreadyVoted(usedAt)
	}

	const insertQuery = `
        INSERT INTO votes (election_id, portfolio_id, candidate_id, voter_fingerprint)
        VALUES ($1,$2,$3,$4)`
	for _, v := range votes {
		if _, err := tx.Exec(ctx, insertQuery, v.ElectionID, v.PortfolioID, v.CandidateID, v.VoterFingerprint); err != nil {
			if isUniqueViolation(err) {
				return time.Time{}, r.alreadyVoted(ctx, v.ElectionID, v.VoterFingerprint)
			}
			return time.Time{}, err
		}
	}

	const consumeQuery = `
        UPDATE credentials SET used=TRUE, used_at=NOW()
        WHERE id=$1
        RETURNING used_at`
	var castAt time.Time
	if err := tx.QueryRow(ctx, consumeQuery, credentialID).Scan(&castAt); err != nil {
		return time.Time{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, err
	}
	return castAt, nil
}

func (r *ballotRepository) CountVotes(ctx context.Context, electionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM votes WHERE election_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, electionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// alreadyVoted resolves the winning submission's cast time after losing
// the uniqueness race. Runs outside the aborted transaction.
func (r *ballotRepository) alreadyVoted(ctx context.Context, electionID, fingerprint string) error {
	_, castAt, err := r.HasVoted(ctx, electionID, fingerprint)
	if err != nil {
		return apperrors.NewAlreadyVoted(nil)
	}
	return apperrors.NewAlreadyVoted(castAt)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
