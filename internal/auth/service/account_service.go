package service

import (
	"context"
	"errors"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	subjectAccountDeleted = "Account Permanently Deleted"
	messageAccountDeleted = "We want to inform you that your account has been permanently deleted. " +
		"You will no longer be able to access your account or retrieve any associated data."
)

// AccountService covers profile and administrative operations on existing accounts.
type AccountService struct {
	repo     domain.UserRepository
	notifier domain.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewAccountService(repo domain.UserRepository, notifier domain.Notifier, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{repo: repo, notifier: notifier, log: log, now: time.Now}
}

// CurrentUser loads the account behind a verified token.
func (s *AccountService) CurrentUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	if user.IsDeleted {
		return nil, autherror.ErrAccountDeletedToken
	}
	return user, nil
}

func (s *AccountService) List(ctx context.Context) ([]dto.UserOutput, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	out := make([]dto.UserOutput, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserOutput(&users[i]))
	}
	return out, nil
}

func (s *AccountService) Find(ctx context.Context, id string) (*dto.UserOutput, error) {
	if id == "" {
		return nil, autherror.ErrUserIDRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, autherror.ErrUserNotFound
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if user == nil || user.IsDeleted {
		return nil, autherror.ErrUserNotFound
	}
	out := dto.NewUserOutput(user)
	return &out, nil
}

func (s *AccountService) ChangeStatus(ctx context.Context, id string, input dto.ChangeStatusInput) (*dto.UserOutput, error) {
	if id == "" {
		return nil, autherror.ErrUserIDRequired
	}
	if input.Status.Blank() {
		return nil, autherror.ErrStatusRequired
	}
	status := domain.Status(input.Status.Trimmed())
	if !status.Valid() {
		return nil, autherror.ErrInvalidStatus
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, autherror.ErrUserNotFound
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if user == nil || user.IsDeleted {
		return nil, autherror.ErrUserNotFound
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, autherror.Internal(err)
	}
	user.Status = status
	out := dto.NewUserOutput(user)
	return &out, nil
}

// UpdateProfile rewrites names and contact details. Email and phone may not belong to another live account.
func (s *AccountService) UpdateProfile(ctx context.Context, user *domain.User, input dto.UpdateProfileInput) (*dto.UserOutput, error) {
	email := normalizeEmail(input.Email)
	phone := normalizePhone(input.Phone)

	other, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, autherror.Internal(err)
	}
	if other != nil && !other.IsDeleted && other.ID != user.ID {
		return nil, autherror.ErrEmailAlreadyExists
	}
	if phone != nil {
		other, err = s.repo.GetByPhone(ctx, *phone)
		if err != nil {
			return nil, autherror.Internal(err)
		}
		if other != nil && !other.IsDeleted && other.ID != user.ID {
			return nil, autherror.ErrPhoneAlreadyExists
		}
	}

	updated := *user
	updated.FirstName = Capitalize(input.FirstName.Trimmed())
	updated.LastName = Capitalize(input.LastName.Trimmed())
	updated.Email = email
	updated.Phone = phone
	updated.UpdatedAt = s.now()

	if err := s.repo.UpdateProfile(ctx, &updated); err != nil {
		var typed *autherror.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, autherror.Internal(err)
	}
	out := dto.NewUserOutput(&updated)
	return &out, nil
}

// DeleteAccount files a deletion request and soft-deletes the account. Only one request per user is accepted.
func (s *AccountService) DeleteAccount(ctx context.Context, user *domain.User, input dto.DeleteAccountInput) error {
	if input.Reason.Blank() {
		return autherror.ErrReasonRequired
	}

	existing, err := s.repo.GetDeleteRequest(ctx, user.ID)
	if err != nil {
		return autherror.Internal(err)
	}
	if existing != nil {
		return autherror.ErrDeleteAlreadyFiled
	}

	req := &domain.DeleteAccountRequest{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Reason:    input.Reason.Trimmed(),
		CreatedAt: s.now(),
	}
	if err := s.repo.DeleteAccount(ctx, req); err != nil {
		return autherror.Internal(err)
	}

	s.notifier.Send(ctx, domain.Notification{
		FirstName: user.FirstName,
		Email:     user.Email,
		Subject:   subjectAccountDeleted,
		Body:      messageAccountDeleted,
	})
	s.log.Info("account deleted", zap.String("user_id", user.ID))
	return nil
}
