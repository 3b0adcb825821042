package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

// MemberRepository covers the member lookups and ban state used at the door.
type MemberRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
	FindByCardNo(ctx context.Context, cardNo string) (*domain.Member, error)
	FindByIDNumber(ctx context.Context, idNumber string) (*domain.Member, error)
	FindByName(ctx context.Context, parts []string) (*domain.Member, error)
	ListRegistrations(ctx context.Context, cardNo string) ([]domain.MemberRegistration, error)
	Ban(ctx context.Context, id, branchID int64, reason string) error
	Unban(ctx context.Context, id, branchID int64) error
	ListBanned(ctx context.Context, branchID int64) ([]domain.Member, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a Postgres-backed implementation.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

const memberColumns = `id, card_no, id_number, first_name, middle_name, last_name, branch_id,
        banned, ban_reason, risk_assessment, created_at`

// earliest registration wins when a card or name matches several rows
const memberOrder = ` ORDER BY created_at ASC, id ASC LIMIT 1`

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id))
}

func (r *memberRepository) FindByCardNo(ctx context.Context, cardNo string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE card_no=$1` + memberOrder
	return scanMember(r.pool.QueryRow(ctx, query, cardNo))
}

func (r *memberRepository) FindByIDNumber(ctx context.Context, idNumber string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id_number=$1` + memberOrder
	return scanMember(r.pool.QueryRow(ctx, query, idNumber))
}

// FindByName matches "first last" or "first middle last", in either first/last order.
func (r *memberRepository) FindByName(ctx context.Context, parts []string) (*domain.Member, error) {
	lowered := make([]any, len(parts))
	for i, p := range parts {
		lowered[i] = strings.ToLower(p)
	}

	var where string
	switch len(parts) {
	case 2:
		where = `(LOWER(first_name)=$1 AND LOWER(last_name)=$2) OR (LOWER(last_name)=$1 AND LOWER(first_name)=$2)`
	case 3:
		where = `(LOWER(first_name)=$1 AND LOWER(middle_name)=$2 AND LOWER(last_name)=$3)
              OR (LOWER(last_name)=$1 AND LOWER(first_name)=$2 AND LOWER(middle_name)=$3)`
	default:
		return nil, pgx.ErrNoRows
	}

	query := `SELECT ` + memberColumns + ` FROM members WHERE ` + where + memberOrder
	return scanMember(r.pool.QueryRow(ctx, query, lowered...))
}

func (r *memberRepository) ListRegistrations(ctx context.Context, cardNo string) ([]domain.MemberRegistration, error) {
	const query = `
        SELECT b.id, b.name, m.created_at
        FROM members m JOIN branches b ON m.branch_id = b.id
        WHERE m.card_no=$1
        ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, query, cardNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MemberRegistration
	for rows.Next() {
		var reg domain.MemberRegistration
		if err := rows.Scan(&reg.BranchID, &reg.BranchName, &reg.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	return result, rows.Err()
}

// Ban returns pgx.ErrNoRows when the member is missing, in another branch, or already banned.
func (r *memberRepository) Ban(ctx context.Context, id, branchID int64, reason string) error {
	const query = `
        UPDATE members SET banned=TRUE, ban_reason=$1
        WHERE id=$2 AND branch_id=$3 AND banned=FALSE`
	cmd, err := r.pool.Exec(ctx, query, reason, id, branchID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *memberRepository) Unban(ctx context.Context, id, branchID int64) error {
	const query = `
        UPDATE members SET banned=FALSE, ban_reason=''
        WHERE id=$1 AND branch_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, branchID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *memberRepository) ListBanned(ctx context.Context, branchID int64) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE banned=TRUE AND branch_id=$1 ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *member)
	}
	return result, rows.Err()
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	if err := row.Scan(
		&m.ID,
		&m.CardNo,
		&m.IDNumber,
		&m.FirstName,
		&m.MiddleName,
		&m.LastName,
		&m.BranchID,
		&m.Banned,
		&m.BanReason,
		&m.RiskAssessment,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
