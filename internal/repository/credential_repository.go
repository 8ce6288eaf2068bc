package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/election-service/internal/domain"
)

// CredentialRepository manages voter credential persistence. Batch
// creation is duplicate-safe so concurrent activation sweeps cannot
// mint two credentials for the same voter.
type CredentialRepository interface {
	CreateBatch(ctx context.Context, creds []domain.Credential) (int, error)
	GetByInvitationToken(ctx context.Context, token string) (*domain.Credential, error)
	GetByAccessToken(ctx context.Context, token string) (*domain.Credential, error)
	MarkCodeSent(ctx context.Context, id, otp string, expiresAt, sentAt time.Time, resendIncrement int) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	SaveAccessGrant(ctx context.Context, id, accessToken string, expiresAt time.Time) error
	ListByElection(ctx context.Context, electionID string) ([]domain.Credential, error)
	TurnoutByElection(ctx context.Context, electionID string) (used int, total int, err error)
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository instantiates repository.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

const credentialColumns = `id, election_id, voter_id, voter_name, email, invitation_token,
       otp, otp_expires_at, otp_attempts, resend_count, last_otp_sent_at,
       access_token, access_expires_at, used, used_at, issued_at`

// CreateBatch inserts credentials with ON CONFLICT DO NOTHING on the
// (election, voter) pair and reports how many rows were actually new.
func (r *credentialRepository) CreateBatch(ctx context.Context, creds []domain.Credential) (int, error) {
	const query = `
        INSERT INTO credentials (election_id, voter_id, voter_name, email, invitation_token)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (election_id, voter_id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range creds {
		batch.Queue(query, c.ElectionID, c.VoterID, c.VoterName, c.Email, c.InvitationToken)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close() //nolint:errcheck

	inserted := 0
	for range creds {
		cmd, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(cmd.RowsAffected())
	}
	return inserted, nil
}

func (r *credentialRepository) GetByInvitationToken(ctx context.Context, token string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE invitation_token=$1`
	return r.fetchSingle(ctx, query, token)
}

func (r *credentialRepository) GetByAccessToken(ctx context.Context, token string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE access_token=$1`
	return r.fetchSingle(ctx, query, token)
}

// MarkCodeSent stores a fresh one-time code and resets the attempt
// counter. resendIncrement is 0 for the initial send, 1 for resends.
func (r *credentialRepository) MarkCodeSent(ctx context.Context, id, otp string, expiresAt, sentAt time.Time, resendIncrement int) error {
	const query = `
        UPDATE credentials
        SET otp=$2, otp_expires_at=$3, last_otp_sent_at=$4, otp_attempts=0,
            resend_count=resend_count+$5
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, otp, expiresAt, sentAt, resendIncrement)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IncrementAttempts bumps the failed-attempt counter and returns the
// new value.
func (r *credentialRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	const query = `
        UPDATE credentials SET otp_attempts=otp_attempts+1
        WHERE id=$1
        RETURNING otp_attempts`
	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, err
	}
	return attempts, nil
}

// SaveAccessGrant records the post-verification access token, clears
// the consumed one-time code, and resets the attempt counter.
func (r *credentialRepository) SaveAccessGrant(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	const query = `
        UPDATE credentials
        SET access_token=$2, access_expires_at=$3, otp=NULL, otp_expires_at=NULL, otp_attempts=0
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, accessToken, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *credentialRepository) ListByElection(ctx context.Context, electionID string) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE election_id=$1 ORDER BY issued_at`
	rows, err := r.pool.Query(ctx, query, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *credentialRepository) TurnoutByElection(ctx context.Context, electionID string) (int, int, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE used), COUNT(*)
        FROM credentials WHERE election_id=$1`
	var used, total int
	if err := r.pool.QueryRow(ctx, query, electionID).Scan(&used, &total); err != nil {
		return 0, 0, err
	}
	return used, total, nil
}

func (r *credentialRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Credential, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanCredential(row)
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var c domain.Credential
	if err := row.Scan(
		&c.ID,
		&c.ElectionID,
		&c.VoterID,
		&c.VoterName,
		&c.Email,
		&c.InvitationToken,
		&c.OTP,
		&c.OTPExpiresAt,
		&c.OTPAttempts,
		&c.ResendCount,
		&c.LastOTPSentAt,
		&c.AccessToken,
		&c.AccessExpiresAt,
		&c.Used,
		&c.UsedAt,
		&c.IssuedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
