package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	PasswordHash string
	Image        *string
	Role         Role
	Status       Status
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Active() bool {
	return u.Status == StatusActive
}

type DeleteAccountRequest struct {
	ID        string
	UserID    string
	Reason    string
	CreatedAt time.Time
}
