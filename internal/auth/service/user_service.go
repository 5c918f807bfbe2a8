package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/metrics"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/optional"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const minPhoneLength = 6

// OTP notification content per flow.
const (
	subjectVerification  = "Verification"
	messageRegistration  = "Your one-time passcode for registration is"
	subjectPasswordReset = "Password Reset Request"
	messagePasswordReset = "Your one-time passcode for resetting your password is"
	subjectPasswordDone  = "Password Updated"
	messagePasswordDone  = "Your password has been successfully updated."
)

type UserService struct {
	repo     domain.UserRepository
	pending  domain.PendingStore
	otp      *OtpService
	tokens   TokenGenerator
	notifier domain.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewUserService(repo domain.UserRepository, pending domain.PendingStore, otp *OtpService,
	tokens TokenGenerator, notifier domain.Notifier, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		repo:     repo,
		pending:  pending,
		otp:      otp,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Capitalize upper-cases the first letter of every word and lower-cases the rest.
func Capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}

// normalizeEmail lower-cases the address. Accounts and otp records are keyed on this form.
func normalizeEmail(email optional.String) string {
	return strings.ToLower(email.Trimmed())
}

// normalizePhone drops phones that are too short to be meaningful.
func normalizePhone(phone optional.String) *string {
	p := phone.Trimmed()
	if len(p) < minPhoneLength {
		return nil
	}
	return &p
}

func (s *UserService) liveByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil || user == nil || user.IsDeleted {
		return nil, err
	}
	return user, nil
}

func (s *UserService) liveByPhone(ctx context.Context, phone string) (*domain.User, error) {
	user, err := s.repo.GetByPhone(ctx, phone)
	if err != nil || user == nil || user.IsDeleted {
		return nil, err
	}
	return user, nil
}

// checkAvailable fails when the email or phone already belongs to a live account.
func (s *UserService) checkAvailable(ctx context.Context, email string, phone *string) error {
	user, err := s.liveByEmail(ctx, email)
	if err != nil {
		return autherror.Internal(err)
	}
	if user != nil {
		return autherror.ErrEmailAlreadyExists
	}
	if phone == nil {
		return nil
	}
	user, err = s.liveByPhone(ctx, *phone)
	if err != nil {
		return autherror.Internal(err)
	}
	if user != nil {
		return autherror.ErrPhoneAlreadyExists
	}
	return nil
}

// checkRegistered fails when the email or phone is not attached to a live account.
func (s *UserService) checkRegistered(ctx context.Context, email string, phone *string) error {
	user, err := s.liveByEmail(ctx, email)
	if err != nil {
		return autherror.Internal(err)
	}
	if user == nil {
		return autherror.ErrEmailNotFound
	}
	if phone == nil {
		return nil
	}
	user, err = s.liveByPhone(ctx, *phone)
	if err != nil {
		return autherror.Internal(err)
	}
	if user == nil {
		return autherror.ErrPhoneNotFound
	}
	return nil
}

// resolve finds the account by email, falling back to phone.
func (s *UserService) resolve(ctx context.Context, email, phone optional.String) (*domain.User, error) {
	switch {
	case !email.Blank():
		user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
		if err != nil {
			return nil, autherror.Internal(err)
		}
		if user == nil {
			return nil, autherror.ErrEmailNotFound
		}
		return user, nil
	case !phone.Blank():
		user, err := s.repo.GetByPhone(ctx, phone.Trimmed())
		if err != nil {
			return nil, autherror.Internal(err)
		}
		if user == nil {
			return nil, autherror.ErrPhoneNotFound
		}
		return user, nil
	default:
		return nil, autherror.ErrIdentifierRequired
	}
}

func accountUsable(user *domain.User) error {
	if user.IsDeleted {
		return autherror.ErrAccountDeleted
	}
	if !user.Active() {
		return autherror.ErrAccountInactive
	}
	return nil
}

func (s *UserService) loadPending(ctx context.Context, sid string) (*domain.PendingCredentials, error) {
	p, err := s.pending.Get(ctx, sid)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if p == nil {
		return nil, autherror.ErrSessionExpired
	}
	return p, nil
}

func (s *UserService) issueToken(user *domain.User) (*dto.AuthOutput, error) {
	token, _, err := s.tokens.Generate(user.ID, string(user.Role))
	if err != nil {
		return nil, autherror.Internal(err)
	}
	return &dto.AuthOutput{User: dto.NewUserOutput(user), Token: token}, nil
}

// Register stores the applicant's details under sid and sends a registration code.
func (s *UserService) Register(ctx context.Context, sid string, input dto.RegisterInput) (*dto.OtpOutput, error) {
	email := normalizeEmail(input.Email)
	phone := normalizePhone(input.Phone)

	if err := s.checkAvailable(ctx, email, phone); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password.Value()), bcrypt.DefaultCost)
	if err != nil {
		return nil, autherror.Internal(err)
	}

	pending := &domain.PendingCredentials{
		FirstName:    input.FirstName.Trimmed(),
		LastName:     input.LastName.Trimmed(),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Purpose:      domain.PurposeRegister,
	}
	if err := s.pending.Save(ctx, sid, pending); err != nil {
		return nil, autherror.Internal(err)
	}

	return s.otp.Issue(ctx, IssueInput{
		FirstName: pending.FirstName,
		Email:     email,
		Phone:     phone,
		Subject:   subjectVerification,
		Message:   messageRegistration,
	})
}

// ResendOtp issues a fresh code for the pending session. reset selects the password reset wording
// and requires the account to exist, otherwise the account must not exist yet.
func (s *UserService) ResendOtp(ctx context.Context, sid string, reset bool) (*dto.OtpOutput, error) {
	p, err := s.loadPending(ctx, sid)
	if err != nil {
		return nil, err
	}

	in := IssueInput{FirstName: p.FirstName, Email: p.Email, Phone: p.Phone}
	if reset {
		if err := s.checkRegistered(ctx, p.Email, p.Phone); err != nil {
			return nil, err
		}
		in.Subject, in.Message = subjectPasswordReset, messagePasswordReset
	} else {
		if err := s.checkAvailable(ctx, p.Email, p.Phone); err != nil {
			return nil, err
		}
		in.Subject, in.Message = subjectVerification, messageRegistration
	}

	return s.otp.Issue(ctx, in)
}

func (s *UserService) OtpStatus(ctx context.Context, sid string) (*dto.OtpStatusOutput, error) {
	p, err := s.loadPending(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.otp.Status(ctx, p.Email)
}

// Verify checks the code for the pending session. For a reset it only unlocks UpdatePassword
// and returns nil output. For a registration it creates the account and signs the user in.
func (s *UserService) Verify(ctx context.Context, sid string, code int, reset bool) (*dto.AuthOutput, error) {
	p, err := s.loadPending(ctx, sid)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(ctx, code, p.Email, p.Phone); err != nil {
		return nil, err
	}

	if reset {
		p.Verified = true
		if err := s.pending.Save(ctx, sid, p); err != nil {
			return nil, autherror.Internal(err)
		}
		return nil, nil
	}

	existing, err := s.liveByEmail(ctx, p.Email)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if existing != nil {
		return nil, autherror.ErrUserAlreadyExists
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    Capitalize(p.FirstName),
		LastName:     Capitalize(p.LastName),
		Email:        p.Email,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		var typed *autherror.Error
		if errors.As(err, &typed) {
			return nil, autherror.ErrUserAlreadyExists
		}
		return nil, autherror.Internal(err)
	}

	if err := s.pending.Delete(ctx, sid); err != nil {
		s.log.Warn("failed to clear pending credentials", zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.issueToken(user)
}

// Login authenticates by email or phone and password.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthOutput, error) {
	user, err := s.resolve(ctx, input.Email, input.Phone)
	if err != nil {
		metrics.Logins.WithLabelValues("unknown").Inc()
		return nil, err
	}

	if input.Password.Value() == "" {
		return nil, autherror.ErrPasswordRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password.Value())) != nil {
		metrics.Logins.WithLabelValues("invalid_password").Inc()
		return nil, autherror.ErrInvalidPassword
	}
	if err := accountUsable(user); err != nil {
		metrics.Logins.WithLabelValues("blocked").Inc()
		return nil, err
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	return s.issueToken(user)
}

// ForgotPassword snapshots the account under sid and sends a reset code.
func (s *UserService) ForgotPassword(ctx context.Context, sid string, input dto.ForgotPasswordInput) (*dto.OtpOutput, error) {
	user, err := s.resolve(ctx, input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	if err := accountUsable(user); err != nil {
		return nil, err
	}

	pending := &domain.PendingCredentials{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		Purpose:   domain.PurposeReset,
	}
	if err := s.pending.Save(ctx, sid, pending); err != nil {
		return nil, autherror.Internal(err)
	}

	return s.otp.Issue(ctx, IssueInput{
		FirstName: user.FirstName,
		Email:     user.Email,
		Phone:     user.Phone,
		Subject:   subjectPasswordReset,
		Message:   messagePasswordReset,
	})
}

// UpdatePassword sets a new password once the reset code for sid has been verified.
func (s *UserService) UpdatePassword(ctx context.Context, sid string, input dto.UpdatePasswordInput) error {
	p, err := s.loadPending(ctx, sid)
	if err != nil {
		return err
	}
	if p.Purpose != domain.PurposeReset || !p.Verified {
		return autherror.ErrOtpNotVerified
	}

	user, err := s.resolve(ctx, optional.Of(p.Email), optional.FromPtr(p.Phone))
	if err != nil {
		return err
	}
	if err := accountUsable(user); err != nil {
		return err
	}
	if strings.TrimSpace(input.Password.Value()) == "" {
		return autherror.ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password.Value()), bcrypt.DefaultCost)
	if err != nil {
		return autherror.Internal(err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return autherror.Internal(err)
	}

	s.notifier.Send(ctx, domain.Notification{
		FirstName: user.FirstName,
		Email:     user.Email,
		Subject:   subjectPasswordDone,
		Body:      messagePasswordDone,
	})

	if err := s.pending.Delete(ctx, sid); err != nil {
		s.log.Warn("failed to clear pending credentials", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *UserService) Logout(ctx context.Context, sid string) error {
	if err := s.pending.Delete(ctx, sid); err != nil {
		return autherror.Internal(err)
	}
	return nil
}

// Reauthenticate issues a fresh token for an already authenticated user.
func (s *UserService) Reauthenticate(ctx context.Context, user *domain.User) (*dto.AuthOutput, error) {
	if err := accountUsable(user); err != nil {
		return nil, err
	}
	return s.issueToken(user)
}
