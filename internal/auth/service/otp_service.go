package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/metrics"
	"go.uber.org/zap"
)

const (
	otpDigits          = 6
	maxCodeAllocations = 5
	defaultRetention   = 24 * time.Hour

	msgOtpCanBeSent = "otp can be sent"
	msgNoOtpData    = "no otp data found"
)

var otpSpace = big.NewInt(1_000_000)

type OtpConfig struct {
	Expiry         time.Duration
	ResendInterval time.Duration
	// RequireRecord makes verification fail when no code was ever issued.
	RequireRecord bool
	// Location decides where a calendar day starts.
	Location *time.Location
	// Retention is how long an expired record keeps its code reserved.
	Retention time.Duration
}

type IssueInput struct {
	FirstName string
	Email     string
	Phone     *string
	Subject   string
	Message   string
}

type OtpService struct {
	repo     domain.OtpRepository
	notifier domain.Notifier
	phones   domain.PhoneVerifier
	cfg      OtpConfig
	log      *zap.Logger
	now      func() time.Time
	newCode  func() (int, error)
}

type OtpOption func(*OtpService)

func WithClock(now func() time.Time) OtpOption {
	return func(s *OtpService) { s.now = now }
}

func WithCodeGenerator(gen func() (int, error)) OtpOption {
	return func(s *OtpService) { s.newCode = gen }
}

func NewOtpService(repo domain.OtpRepository, notifier domain.Notifier, phones domain.PhoneVerifier,
	cfg OtpConfig, log *zap.Logger, opts ...OtpOption) *OtpService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &OtpService{
		repo:     repo,
		notifier: notifier,
		phones:   phones,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newCode:  randomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomCode draws uniformly from 000000-999999.
func randomCode() (int, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// recordKey is the form an email is stored under in the otp table.
func recordKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FormatCode renders a code with its leading zeros.
func FormatCode(code int) string {
	return fmt.Sprintf("%0*d", otpDigits, code)
}

func (s *OtpService) startOfDay(t time.Time) time.Time {
	t = t.In(s.cfg.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// resendWait returns how long the caller must still wait before a new code may be sent.
func (s *OtpService) resendWait(rec *domain.OtpRecord, now time.Time) time.Duration {
	if rec.LastSentAt.Before(s.startOfDay(now)) {
		return 0
	}
	elapsed := now.Sub(rec.LastSentAt)
	if elapsed >= s.cfg.ResendInterval {
		return 0
	}
	return s.cfg.ResendInterval - elapsed
}

// Issue generates and stores a new code for the email and sends it out.
// A resend inside the interval is refused without touching the stored record.
func (s *OtpService) Issue(ctx context.Context, in IssueInput) (*dto.OtpOutput, error) {
	now := s.now()
	in.Email = recordKey(in.Email)
	issue := domain.OtpIssue{
		Email:        in.Email,
		Phone:        in.Phone,
		ExpiryTime:   now.Add(s.cfg.Expiry),
		SentAt:       now,
		DayStart:     s.startOfDay(now),
		ResendBefore: now.Add(-s.cfg.ResendInterval),
	}

	for attempt := 0; attempt < maxCodeAllocations; attempt++ {
		code, err := s.newCode()
		if err != nil {
			metrics.OtpIssued.WithLabelValues("error").Inc()
			return nil, autherror.Internal(err)
		}
		issue.Code = code

		rec, err := s.repo.Upsert(ctx, issue)
		if errors.Is(err, domain.ErrCodeInUse) {
			continue
		}
		if err != nil {
			metrics.OtpIssued.WithLabelValues("error").Inc()
			return nil, autherror.Internal(err)
		}

		if rec == nil {
			existing, err := s.repo.GetByEmail(ctx, in.Email)
			if err != nil {
				metrics.OtpIssued.WithLabelValues("error").Inc()
				return nil, autherror.Internal(err)
			}
			if existing == nil {
				// removed between the two statements
				continue
			}
			metrics.OtpIssued.WithLabelValues("rate_limited").Inc()
			return nil, autherror.RateLimit(s.resendWait(existing, now))
		}

		s.notifier.Send(ctx, domain.Notification{
			FirstName: in.FirstName,
			Email:     in.Email,
			Subject:   in.Subject,
			Body:      fmt.Sprintf("%s %s", in.Message, FormatCode(code)),
		})
		metrics.OtpIssued.WithLabelValues("sent").Inc()

		return &dto.OtpOutput{
			Email:      in.Email,
			Phone:      in.Phone,
			ExpiryTime: rec.ExpiryTime.UnixMilli(),
		}, nil
	}

	metrics.OtpIssued.WithLabelValues("error").Inc()
	return nil, autherror.Internal(errors.New("unable to allocate a unique otp code"))
}

// Verify checks a code for the email and consumes the record on success.
// An expired record is kept. A mismatch is accepted only when the phone is
// already verified with the identity provider.
func (s *OtpService) Verify(ctx context.Context, code int, email string, phone *string) error {
	email = recordKey(email)
	rec, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		metrics.OtpVerified.WithLabelValues("error").Inc()
		return autherror.Internal(err)
	}
	if rec == nil {
		if s.cfg.RequireRecord {
			metrics.OtpVerified.WithLabelValues("missing").Inc()
			return autherror.ErrOtpNotFound
		}
		metrics.OtpVerified.WithLabelValues("no_record").Inc()
		return nil
	}

	if s.now().After(rec.ExpiryTime) {
		metrics.OtpVerified.WithLabelValues("expired").Inc()
		return autherror.ErrOtpExpired
	}

	if code != rec.Code && !s.phoneVerified(ctx, phone) {
		metrics.OtpVerified.WithLabelValues("mismatch").Inc()
		return autherror.ErrInvalidPasscode
	}

	if err := s.repo.DeleteByEmail(ctx, email); err != nil {
		metrics.OtpVerified.WithLabelValues("error").Inc()
		return autherror.Internal(err)
	}
	metrics.OtpVerified.WithLabelValues("ok").Inc()
	return nil
}

func (s *OtpService) phoneVerified(ctx context.Context, phone *string) bool {
	if phone == nil || *phone == "" || s.phones == nil {
		return false
	}
	ok, err := s.phones.IsPhoneVerified(ctx, *phone)
	if err != nil {
		s.log.Warn("phone verification lookup failed", zap.String("phone", *phone), zap.Error(err))
		return false
	}
	return ok
}

// Status reports the current code's expiry and whether a resend is allowed, without mutating anything.
func (s *OtpService) Status(ctx context.Context, email string) (*dto.OtpStatusOutput, error) {
	rec, err := s.repo.GetByEmail(ctx, recordKey(email))
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if rec == nil {
		return &dto.OtpStatusOutput{Message: msgNoOtpData}, nil
	}

	msg := msgOtpCanBeSent
	if wait := s.resendWait(rec, s.now()); wait > 0 {
		msg = autherror.RateLimit(wait).Message
	}

	return &dto.OtpStatusOutput{
		ExpiryTime: rec.ExpiryTime.UnixMilli(),
		Message:    msg,
		Attempts:   rec.ResendAttempts,
	}, nil
}

// PurgeExpired drops records whose code expired more than Retention ago and
// that were not sent today, returning their codes to the pool.
func (s *OtpService) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.DeleteExpired(ctx, now.Add(-s.cfg.Retention), s.startOfDay(now))
	if err != nil {
		return 0, autherror.Internal(err)
	}
	return n, nil
}

// RunJanitor calls PurgeExpired every interval until ctx is cancelled.
func (s *OtpService) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Warn("otp purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("purged expired otp records", zap.Int64("count", n))
			}
		}
	}
}
