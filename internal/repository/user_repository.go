package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// UserRepo reads and writes the `users` and `user_roles` tables.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = fmt.Errorf("email already exists: %w", ErrConflict)

const mysqlDuplicateEntry = 1062

// userSelect folds the role rows into one comma separated column.
const userSelect = `SELECT u.id, u.tenant_id, u.email, u.password_hash, u.full_name, u.is_active,
u.email_verified_at, u.last_login_at, u.created_at, u.updated_at,
COALESCE(GROUP_CONCAT(r.role_name ORDER BY r.role_name SEPARATOR ','), '')
FROM users u LEFT JOIN user_roles r ON r.user_id = u.id`

// Create inserts a user with its roles and returns the new ID.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	email := normalizeEmail(u.Email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (tenant_id, email, password_hash, full_name, is_active) VALUES (?,?,?,?,?)",
		u.TenantID, email, hash, u.FullName, u.IsActive)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_name) VALUES (?,?)", id, role); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, userSelect+" WHERE u.email = ? GROUP BY u.id LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := conn(ctx, r.DB).QueryRowContext(ctx, userSelect+" WHERE u.id = ? GROUP BY u.id LIMIT 1", id)
	return scanUser(row)
}

// ListByTenant returns every user of a tenant ordered by id.
func (r *UserRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, userSelect+" WHERE u.tenant_id = ? GROUP BY u.id ORDER BY u.id", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdatePassword stores a new bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.execOne(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", hash, time.Now().UTC(), id)
}

// MarkEmailVerified records that email was confirmed at `at`. The email
// column is rewritten too so a verification started for a new address
// switches the account over.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id uint64, email string, at time.Time) error {
	return r.execOne(ctx, "UPDATE users SET email = ?, email_verified_at = ?, updated_at = ? WHERE id = ?",
		normalizeEmail(email), at, at, id)
}

// TouchLastLogin sets last_login_at.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", at, id)
	return err
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u          model.User
		verifiedAt sql.NullTime
		lastLogin  sql.NullTime
		roles      string
	)
	err := s.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive,
		&verifiedAt, &lastLogin, &u.CreatedAt, &u.UpdatedAt, &roles)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.EmailVerifiedAt = nullTimePtr(verifiedAt)
	u.LastLoginAt = nullTimePtr(lastLogin)
	u.Roles = splitRoles(roles)
	return u, nil
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
