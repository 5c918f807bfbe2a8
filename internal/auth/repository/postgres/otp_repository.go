package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type OtpRepository struct {
	db PgxIface
}

func NewOtpRepository(db PgxIface) *OtpRepository {
	return &OtpRepository{db: db}
}

const otpColumns = `email, phone, code, expiry_time, resend_attempts, last_sent_at, created_at, updated_at`

func scanOtp(row scanner) (*domain.OtpRecord, error) {
	var rec domain.OtpRecord
	err := row.Scan(&rec.Email, &rec.Phone, &rec.Code, &rec.ExpiryTime, &rec.ResendAttempts,
		&rec.LastSentAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *OtpRepository) GetByEmail(ctx context.Context, email string) (*domain.OtpRecord, error) {
	rec, err := scanOtp(r.db.QueryRow(ctx, `SELECT `+otpColumns+` FROM otp_records WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get otp record: %w", err)
	}
	return rec, nil
}

// Upsert inserts a fresh record or overwrites the existing one in a single statement.
// The update branch only fires when the previous send was on an earlier day or
// at least one resend interval ago, so concurrent resends cannot both win.
func (r *OtpRepository) Upsert(ctx context.Context, issue domain.OtpIssue) (*domain.OtpRecord, error) {
	query := `
		INSERT INTO otp_records (` + otpColumns + `)
		VALUES ($1, $2, $3, $4, 1, $5, $5, $5)
		ON CONFLICT (email) DO UPDATE SET
			phone = EXCLUDED.phone,
			code = EXCLUDED.code,
			expiry_time = EXCLUDED.expiry_time,
			resend_attempts = CASE
				WHEN otp_records.last_sent_at >= $6 THEN otp_records.resend_attempts + 1
				ELSE 1
			END,
			last_sent_at = EXCLUDED.last_sent_at,
			updated_at = EXCLUDED.updated_at
		WHERE otp_records.last_sent_at < $6 OR otp_records.last_sent_at <= $7
		RETURNING ` + otpColumns

	rec, err := scanOtp(r.db.QueryRow(ctx, query, issue.Email, issue.Phone, issue.Code, issue.ExpiryTime,
		issue.SentAt, issue.DayStart, issue.ResendBefore))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrCodeInUse
		}
		return nil, fmt.Errorf("failed to upsert otp record: %w", err)
	}
	return rec, nil
}

func (r *OtpRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM otp_records WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete otp record: %w", err)
	}
	return nil
}

// DeleteExpired frees the codes held by stale records. Records sent today are kept
// because they still carry the resend interval and the daily attempt counter.
func (r *OtpRepository) DeleteExpired(ctx context.Context, cutoff, dayStart time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM otp_records WHERE expiry_time < $1 AND last_sent_at < $2`, cutoff, dayStart)
	if err != nil {
		return 0, fmt.Errorf("failed to purge otp records: %w", err)
	}
	return tag.RowsAffected(), nil
}
