package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/election-service/internal/domain"
)

// ElectionRepository encapsulates election persistence. Status writes
// are guarded UPDATEs so concurrent sweeps race safely on the database,
// not on application locks.
type ElectionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Election, error)
	ListActivatable(ctx context.Context, now time.Time) ([]domain.Election, error)
	ListClosable(ctx context.Context, now time.Time) ([]domain.Election, error)
	ClaimLive(ctx context.Context, id string) (bool, error)
	ClaimClosed(ctx context.Context, id string) (bool, error)
	MarkVoterListGenerated(ctx context.Context, id string) error
	ClaimEmailDispatch(ctx context.Context, id string) (bool, error)
}

type electionRepository struct {
	pool *pgxpool.Pool
}

// NewElectionRepository instantiates repository.
func NewElectionRepository(pool *pgxpool.Pool) ElectionRepository {
	return &electionRepository{pool: pool}
}

const electionColumns = `id, title, status, department_id, start_time, end_time,
       voter_list_generated, emails_sent, fingerprint_salt, created_by, approved_by,
       created_at, updated_at`

func (r *electionRepository) GetByID(ctx context.Context, id string) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// ListActivatable also picks up LIVE elections whose credential
// generation was interrupted, so a crashed sweep can be resumed.
func (r *electionRepository) ListActivatable(ctx context.Context, now time.Time) ([]domain.Election, error) {
	query := `SELECT ` + electionColumns + `
        FROM elections
        WHERE start_time <= $1 AND end_time > $1
          AND (status=$2 OR (status=$3 AND voter_list_generated=FALSE))
        ORDER BY start_time`
	rows, err := r.pool.Query(ctx, query, now, domain.ElectionStatusApproved, domain.ElectionStatusLive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanElections(rows)
}

func (r *electionRepository) ListClosable(ctx context.Context, now time.Time) ([]domain.Election, error) {
	query := `SELECT ` + electionColumns + `
        FROM elections
        WHERE status=$1 AND end_time <= $2
        ORDER BY end_time`
	rows, err := r.pool.Query(ctx, query, domain.ElectionStatusLive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanElections(rows)
}

// ClaimLive flips APPROVED to LIVE. Returns false when another sweep
// already claimed the transition.
func (r *electionRepository) ClaimLive(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE elections SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.ElectionStatusLive, id, domain.ElectionStatusApproved)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// ClaimClosed flips LIVE to CLOSED with the same race-safe guard.
func (r *electionRepository) ClaimClosed(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE elections SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.ElectionStatusClosed, id, domain.ElectionStatusLive)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *electionRepository) MarkVoterListGenerated(ctx context.Context, id string) error {
	const query = `
        UPDATE elections SET voter_list_generated=TRUE, updated_at=NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// ClaimEmailDispatch flips the emails_sent guard; only the claiming
// sweep performs invitation dispatch.
func (r *electionRepository) ClaimEmailDispatch(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE elections SET emails_sent=TRUE, updated_at=NOW()
        WHERE id=$1 AND emails_sent=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *electionRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Election, error) {
	var e domain.Election
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&e.ID,
		&e.Title,
		&e.Status,
		&e.DepartmentID,
		&e.StartTime,
		&e.EndTime,
		&e.VoterListGenerated,
		&e.EmailsSent,
		&e.FingerprintSalt,
		&e.CreatedBy,
		&e.ApprovedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanElections(rows pgx.Rows) ([]domain.Election, error) {
	var result []domain.Election
	for rows.Next() {
		var e domain.Election
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Status,
			&e.DepartmentID,
			&e.StartTime,
			&e.EndTime,
			&e.VoterListGenerated,
			&e.EmailsSent,
			&e.FingerprintSalt,
			&e.CreatedBy,
			&e.ApprovedBy,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
