package dto

import "github.com/AnthoniusHendriyanto/otp-auth-service/internal/optional"

type LoginInput struct {
	Email    optional.String `json:"email"`
	Phone    optional.String `json:"phone"`
	Password optional.String `json:"password"`
}

type ForgotPasswordInput struct {
	Email optional.String `json:"email"`
	Phone optional.String `json:"phone"`
}

type UpdatePasswordInput struct {
	Password optional.String `json:"password"`
}
