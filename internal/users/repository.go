package users

import (
	"context"
	"errors"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/models"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository reads rows of the profiles table.
type ProfileRepository interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const profileColumns = `
    p.id::text,
    COALESCE(p.first_name, ''),
    COALESCE(p.last_name, ''),
    COALESCE(p.avatar_url, ''),
    COALESCE(p.role, ''),
    COALESCE(p.matric_number, ''),
    COALESCE(p.level, ''),
    COALESCE(p.staff_id, ''),
    COALESCE(p.department, ''),
    COALESCE(p.qualification, ''),
    COALESCE(p.approval_status, ''),
    COALESCE(p.is_admin, false),
    COALESCE(p.email_verified, false),
    COALESCE(p.receipt_path, ''),
    COALESCE(p.sms_parsing_enabled, false),
    p.created_at,
    p.updated_at`

// PostgresRepository queries profiles directly, joining auth.users for the
// email lookup.
type PostgresRepository struct {
	db Querier
}

func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	row := r.db.QueryRow(ctx, `
    SELECT`+profileColumns+`
    FROM public.profiles p
    WHERE p.id::text = $1
  `, id)
	return scanProfile(row)
}

func (r *PostgresRepository) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	row := r.db.QueryRow(ctx, `
    SELECT`+profileColumns+`
    FROM public.profiles p
    JOIN auth.users u ON u.id = p.id
    WHERE lower(u.email) = lower($1)
  `, email)
	return scanProfile(row)
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.AvatarURL,
		&p.Role,
		&p.MatricNumber,
		&p.Level,
		&p.StaffID,
		&p.Department,
		&p.Qualification,
		&p.ApprovalStatus,
		&p.IsAdmin,
		&p.EmailVerified,
		&p.ReceiptPath,
		&p.SMSParsingEnabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
