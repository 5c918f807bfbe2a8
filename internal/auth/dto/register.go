package dto

import "github.com/AnthoniusHendriyanto/otp-auth-service/internal/optional"

type RegisterInput struct {
	FirstName optional.String `json:"firstName"`
	LastName  optional.String `json:"lastName"`
	Email     optional.String `json:"email"`
	Phone     optional.String `json:"phone"`
	Password  optional.String `json:"password"`
}

// Field looks a credential up by its JSON name.
func (c RegisterInput) Field(name string) optional.String {
	switch name {
	case "firstName":
		return c.FirstName
	case "lastName":
		return c.LastName
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "password":
		return c.Password
	}
	return optional.None()
}
