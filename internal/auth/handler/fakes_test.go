package handler_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
)

// memUsers mirrors the lookup rules of the Postgres repository.
type memUsers struct {
	mu      sync.Mutex
	users   []*domain.User
	deletes map[string]*domain.DeleteAccountRequest
}

func newMemUsers() *memUsers {
	return &memUsers{deletes: map[string]*domain.DeleteAccountRequest{}}
}

func (m *memUsers) find(match func(*domain.User) bool) *domain.User {
	var found *domain.User
	for _, u := range m.users {
		if !match(u) {
			continue
		}
		if found == nil || (found.IsDeleted && !u.IsDeleted) {
			found = u
		}
	}
	if found == nil {
		return nil
	}
	cp := *found
	return &cp
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *domain.User) bool { return u.Phone != nil && *u.Phone == phone }), nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(u *domain.User) bool { return u.ID == id }), nil
}

func (m *memUsers) List(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.IsDeleted && strings.EqualFold(u.Email, user.Email) {
			return autherror.ErrEmailAlreadyExists
		}
	}
	cp := *user
	m.users = append(m.users, &cp)
	return nil
}

func (m *memUsers) update(id string, apply func(*domain.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			apply(u)
		}
	}
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.update(id, func(u *domain.User) { u.PasswordHash = hash })
	return nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	m.update(id, func(u *domain.User) { u.Status = status })
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, user *domain.User) error {
	m.update(user.ID, func(u *domain.User) { *u = *user })
	return nil
}

func (m *memUsers) GetDeleteRequest(_ context.Context, userID string) (*domain.DeleteAccountRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes[userID], nil
}

func (m *memUsers) DeleteAccount(_ context.Context, req *domain.DeleteAccountRequest) error {
	m.mu.Lock()
	m.deletes[req.UserID] = req
	m.mu.Unlock()
	m.update(req.UserID, func(u *domain.User) { u.IsDeleted = true })
	return nil
}

func (m *memUsers) add(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, &u)
}

// memOtps applies the resend interval check of the conditional upsert.
type memOtps struct {
	mu      sync.Mutex
	records map[string]domain.OtpRecord
}

func newMemOtps() *memOtps {
	return &memOtps{records: map[string]domain.OtpRecord{}}
}

func (m *memOtps) GetByEmail(_ context.Context, email string) (*domain.OtpRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memOtps) Upsert(_ context.Context, in domain.OtpIssue) (*domain.OtpRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[in.Email]
	switch {
	case !ok || rec.LastSentAt.Before(in.DayStart):
		rec = domain.OtpRecord{Email: in.Email, ResendAttempts: 1, CreatedAt: in.SentAt}
	case rec.LastSentAt.After(in.ResendBefore):
		return nil, nil
	default:
		rec.ResendAttempts++
	}
	rec.Phone = in.Phone
	rec.Code = in.Code
	rec.ExpiryTime = in.ExpiryTime
	rec.LastSentAt = in.SentAt
	rec.UpdatedAt = in.SentAt
	m.records[in.Email] = rec
	return &rec, nil
}

func (m *memOtps) DeleteExpired(_ context.Context, cutoff, dayStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for email, rec := range m.records {
		if rec.ExpiryTime.Before(cutoff) && rec.LastSentAt.Before(dayStart) {
			delete(m.records, email)
			n++
		}
	}
	return n, nil
}

func (m *memOtps) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, email)
	return nil
}

func (m *memOtps) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = map[string]domain.OtpRecord{}
}

type inbox struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (i *inbox) Send(_ context.Context, n domain.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sent = append(i.sent, n)
}

func (i *inbox) last() domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.sent) == 0 {
		return domain.Notification{}
	}
	return i.sent[len(i.sent)-1]
}

// lastCode extracts the passcode from the most recent OTP mail.
func (i *inbox) lastCode() int {
	body := i.last().Body
	code, _ := strconv.Atoi(body[strings.LastIndex(body, " ")+1:])
	return code
}
