package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/election-service/internal/domain"
)

// PortfolioRepository reads the portfolios defined for an election.
// Portfolio administration is external; the ballot engine only needs
// the set to validate completeness.
type PortfolioRepository interface {
	ListByElection(ctx context.Context, electionID string) ([]domain.Portfolio, error)
}

type portfolioRepository struct {
	pool *pgxpool.Pool
}

// NewPortfolioRepository instantiates repository.
func NewPortfolioRepository(pool *pgxpool.Pool) PortfolioRepository {
	return &portfolioRepository{pool: pool}
}

func (r *portfolioRepository) ListByElection(ctx context.Context, electionID string) ([]domain.Portfolio, error) {
	const query = `
        SELECT id, election_id, title, ballot_order, created_at
        FROM portfolios WHERE election_id=$1
        ORDER BY ballot_order, title`
	rows, err := r.pool.Query(ctx, query, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Portfolio
	for rows.Next() {
		var p domain.Portfolio
		if err := rows.Scan(&p.ID, &p.ElectionID, &p.Title, &p.BallotOrder, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
