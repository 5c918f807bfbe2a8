package domain

//go:generate mockgen -destination=../../mocks/mock_repository.go -package=mocks github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain UserRepository,OtpRepository,PendingStore,Notifier,PhoneVerifier

import (
	"context"
	"time"
)

// UserRepository lookups return nil, nil when nothing matches. GetByEmail and
// GetByPhone prefer a live account over soft-deleted ones.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhone(ctx context.Context, phone string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateProfile(ctx context.Context, user *User) error
	GetDeleteRequest(ctx context.Context, userID string) (*DeleteAccountRequest, error)
	// DeleteAccount files the request and soft-deletes the user atomically.
	DeleteAccount(ctx context.Context, req *DeleteAccountRequest) error
}

type OtpRepository interface {
	GetByEmail(ctx context.Context, email string) (*OtpRecord, error)
	// Upsert returns nil, nil when an existing record refused the write.
	Upsert(ctx context.Context, issue OtpIssue) (*OtpRecord, error)
	DeleteByEmail(ctx context.Context, email string) error
	// DeleteExpired drops records that expired before cutoff and were last sent before dayStart.
	DeleteExpired(ctx context.Context, cutoff, dayStart time.Time) (int64, error)
}

type PendingStore interface {
	Get(ctx context.Context, sid string) (*PendingCredentials, error)
	Save(ctx context.Context, sid string, p *PendingCredentials) error
	Delete(ctx context.Context, sid string) error
}

type Notifier interface {
	Send(ctx context.Context, n Notification)
}

type PhoneVerifier interface {
	IsPhoneVerified(ctx context.Context, phone string) (bool, error)
}
