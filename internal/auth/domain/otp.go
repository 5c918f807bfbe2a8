package domain

import (
	"errors"
	"time"
)

// ErrCodeInUse is returned by the OTP store when another live record holds the same code.
var ErrCodeInUse = errors.New("otp code already in use")

type OtpRecord struct {
	Email          string
	Phone          *string
	Code           int
	ExpiryTime     time.Time
	ResendAttempts int
	LastSentAt     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OtpIssue describes one conditional write to the OTP store. An existing record is
// overwritten only when its LastSentAt is before DayStart or not after ResendBefore.
type OtpIssue struct {
	Email        string
	Phone        *string
	Code         int
	ExpiryTime   time.Time
	SentAt       time.Time
	DayStart     time.Time
	ResendBefore time.Time
}

type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "reset"
)

// PendingCredentials holds the details supplied between the initiate and verify calls.
type PendingCredentials struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone,omitempty"`
	PasswordHash string  `json:"passwordHash,omitempty"`
	Purpose      Purpose `json:"purpose"`
	Verified     bool    `json:"verified"`
}

type Notification struct {
	FirstName string
	Email     string
	Subject   string
	Body      string
}
