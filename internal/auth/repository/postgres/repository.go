package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PgxIface is satisfied by *pgxpool.Pool and by pgxmock pools.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresRepository struct {
	db PgxIface
}

func NewPostgresRepository(db PgxIface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, phone, password_hash, image, role, status, is_deleted, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		user   domain.User
		role   string
		status string
	)
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Phone, &user.PasswordHash,
		&user.Image, &role, &status, &user.IsDeleted, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.Status = domain.Status(status)
	return &user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, what, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", what, err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
		ORDER BY is_deleted ASC, created_at DESC
		LIMIT 1;
	`
	return r.getOne(ctx, "email", query, email)
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE phone = $1
		ORDER BY is_deleted ASC, created_at DESC
		LIMIT 1;
	`
	return r.getOne(ctx, "phone", query, phone)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1;
	`
	return r.getOne(ctx, "id", query, id)
}

func (r *PostgresRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, phone, password_hash, image, role, status, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.FirstName, user.LastName, user.Email, user.Phone, user.PasswordHash, user.Image,
		string(user.Role), string(user.Status), user.IsDeleted, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, phone = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.FirstName, user.LastName, user.Email, user.Phone, user.UpdatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *PostgresRepository) GetDeleteRequest(ctx context.Context, userID string) (*domain.DeleteAccountRequest, error) {
	var req domain.DeleteAccountRequest
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, reason, created_at
		FROM delete_account_requests
		WHERE user_id = $1
	`, userID).Scan(&req.ID, &req.UserID, &req.Reason, &req.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delete request: %w", err)
	}
	return &req, nil
}

// DeleteAccount inserts the deletion request and flags the user in one transaction.
func (r *PostgresRepository) DeleteAccount(ctx context.Context, req *domain.DeleteAccountRequest) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO delete_account_requests (id, user_id, reason, created_at)
			VALUES ($1, $2, $3, $4)
		`, req.ID, req.UserID, req.Reason, req.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return autherror.ErrDeleteAlreadyFiled
			}
			return fmt.Errorf("failed to create delete request: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE users SET is_deleted = TRUE, updated_at = now() WHERE id = $1`, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "phone") {
			return autherror.ErrPhoneAlreadyExists
		}
		return autherror.ErrEmailAlreadyExists
	}
	return fmt.Errorf("failed to write user: %w", err)
}
