package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/ports"
)

const userColumns = `id, email, password_hash, role, tenant_id, tenant_name, is_active, created_at`

// UserRepository is the secondary adapter for user persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TenantID,
		&user.TenantName,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create persists a provisioned user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	row := q.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, tenant_id, tenant_name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.TenantID,
		user.TenantName,
		user.IsActive,
		user.CreatedAt,
	)

	return scanUser(row)
}

// GetByID retrieves a user scoped to its tenant. A user id that exists under
// a different tenant is reported as not found.
func (r *UserRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	user, err := scanUser(q.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by its unique email. Reserved for provisioning;
// the request path never calls it.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	user, err := scanUser(q.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// FirstByTenant returns any user belonging to the tenant. Tenant existence is
// inferred from user membership since there is no separate tenant table.
func (r *UserRepository) FirstByTenant(ctx context.Context, tenantID string) (*domain.User, error) {
	q := GetDBTX(ctx, r.pool)

	user, err := scanUser(q.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE tenant_id = $1 ORDER BY created_at LIMIT 1`,
		tenantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, err
	}
	return user, nil
}
