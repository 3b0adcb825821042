package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

// VisitRepository appends visit log entries.
type VisitRepository interface {
	Create(ctx context.Context, visit *domain.Visit) error
}

type visitRepository struct {
	pool *pgxpool.Pool
}

// NewVisitRepository returns a Postgres-backed implementation.
func NewVisitRepository(pool *pgxpool.Pool) VisitRepository {
	return &visitRepository{pool: pool}
}

func (r *visitRepository) Create(ctx context.Context, visit *domain.Visit) error {
	const query = `
        INSERT INTO visits (member_id, card_no, first_name, middle_name, last_name,
                            branch_id, risk_assessment, banned, visited_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		visit.MemberID,
		visit.CardNo,
		visit.FirstName,
		visit.MiddleName,
		visit.LastName,
		visit.BranchID,
		visit.RiskAssessment,
		visit.Banned,
		visit.VisitedAt,
	).Scan(&visit.ID)
}
