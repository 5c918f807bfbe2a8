package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
)

// memOtpStore applies the same conditional write as the Postgres upsert.
type memOtpStore struct {
	mu      sync.Mutex
	records map[string]domain.OtpRecord
}

func newMemOtpStore() *memOtpStore {
	return &memOtpStore{records: map[string]domain.OtpRecord{}}
}

func (m *memOtpStore) GetByEmail(_ context.Context, email string) (*domain.OtpRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memOtpStore) Upsert(_ context.Context, in domain.OtpIssue) (*domain.OtpRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for email, rec := range m.records {
		if email != in.Email && rec.Code == in.Code {
			return nil, domain.ErrCodeInUse
		}
	}

	rec, ok := m.records[in.Email]
	if !ok {
		rec = domain.OtpRecord{
			Email:          in.Email,
			Phone:          in.Phone,
			Code:           in.Code,
			ExpiryTime:     in.ExpiryTime,
			ResendAttempts: 1,
			LastSentAt:     in.SentAt,
			CreatedAt:      in.SentAt,
			UpdatedAt:      in.SentAt,
		}
		m.records[in.Email] = rec
		return &rec, nil
	}

	newDay := rec.LastSentAt.Before(in.DayStart)
	if !newDay && rec.LastSentAt.After(in.ResendBefore) {
		return nil, nil
	}

	if newDay {
		rec.ResendAttempts = 1
	} else {
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

func (m *memOtpStore) DeleteExpired(_ context.Context, cutoff, dayStart time.Time) (int64, error) {
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

func (m *memOtpStore) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, email)
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier keeps every notification it was asked to send.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Send(_ context.Context, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) Sent() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.sent...)
}

// sequence returns a code generator that yields the given codes in order.
func sequence(codes ...int) func() (int, error) {
	var mu sync.Mutex
	i := 0
	return func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
