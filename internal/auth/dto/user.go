package dto

import (
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/optional"
)

type UserOutput struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Image     *string   `json:"image,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserOutput(u *domain.User) UserOutput {
	return UserOutput{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Image:     u.Image,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
	}
}

// AuthOutput is returned whenever a token is issued.
type AuthOutput struct {
	User  UserOutput
	Token string
}

type UpdateProfileInput struct {
	FirstName optional.String `json:"firstName"`
	LastName  optional.String `json:"lastName"`
	Email     optional.String `json:"email"`
	Phone     optional.String `json:"phone"`
}

type ChangeStatusInput struct {
	Status optional.String `json:"status"`
}

type DeleteAccountInput struct {
	Reason optional.String `json:"reason"`
}
