package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

// BranchRepository manages branch persistence, including the schedule columns.
type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	Update(ctx context.Context, branch *domain.Branch) error
	UpdateSchedule(ctx context.Context, id int64, opening, closing *time.Time) error
	GetByID(ctx context.Context, id int64) (*domain.Branch, error)
	List(ctx context.Context) ([]domain.Branch, error)
	Delete(ctx context.Context, id int64) error
}

type branchRepository struct {
	pool *pgxpool.Pool
}

// NewBranchRepository builds the repository.
func NewBranchRepository(pool *pgxpool.Pool) BranchRepository {
	return &branchRepository{pool: pool}
}

const branchColumns = `id, name, address, email, opening_time, closing_time, created_at, updated_at`

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	const query = `
        INSERT INTO branches (name, address, email, opening_time, closing_time)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		branch.Name,
		branch.Address,
		branch.Email,
		branch.OpeningTime,
		branch.ClosingTime,
	).Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
}

func (r *branchRepository) Update(ctx context.Context, branch *domain.Branch) error {
	const query = `
        UPDATE branches SET name=$1, address=$2, email=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		branch.Name,
		branch.Address,
		branch.Email,
		branch.ID,
	).Scan(&branch.UpdatedAt)
}

// UpdateSchedule writes both schedule columns in one statement so the pair stays consistent.
func (r *branchRepository) UpdateSchedule(ctx context.Context, id int64, opening, closing *time.Time) error {
	const query = `
        UPDATE branches SET opening_time=$1, closing_time=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, opening, closing, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *branchRepository) GetByID(ctx context.Context, id int64) (*domain.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE id=$1`
	branch, err := scanBranch(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return branch, nil
}

func (r *branchRepository) List(ctx context.Context) ([]domain.Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Branch
	for rows.Next() {
		branch, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *branch)
	}
	return result, rows.Err()
}

func (r *branchRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanBranch(row pgx.Row) (*domain.Branch, error) {
	var branch domain.Branch
	if err := row.Scan(
		&branch.ID,
		&branch.Name,
		&branch.Address,
		&branch.Email,
		&branch.OpeningTime,
		&branch.ClosingTime,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &branch, nil
}
