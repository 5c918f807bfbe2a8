package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/optional"
	"github.com/asaskevich/govalidator"
	"github.com/nyaruka/phonenumbers"
)

const MinPasswordLength = 8

type Credentials struct {
	Email     optional.String
	Phone     optional.String
	FirstName optional.String
	LastName  optional.String
	Password  optional.String
	IsLogin   bool
}

type Result struct {
	Error   bool
	Message string
}

func fail(msg string) Result {
	return Result{Error: true, Message: msg}
}

// Validate checks credential shape. Rules run in a fixed order and the first failure wins.
func Validate(c Credentials) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fail(strings.ToLower(fmt.Sprint(r)))
		}
	}()

	if !c.Email.Blank() && !govalidator.IsEmail(c.Email.Value()) {
		return fail("invalid email")
	}

	if !c.Phone.Blank() {
		num, err := phonenumbers.ParseAndKeepRawInput(c.Phone.Value(), "")
		if err != nil {
			return fail(strings.ToLower(err.Error()))
		}
		if !phonenumbers.IsValidNumber(num) {
			return fail("invalid phone number")
		}
	}

	if c.IsLogin && c.Email.Blank() && c.Phone.Blank() {
		return fail("invalid email or phone number")
	}

	if c.FirstName.Present() && !isName(c.FirstName.Value()) {
		return fail("invalid first name")
	}
	if c.LastName.Present() && !isName(c.LastName.Value()) {
		return fail("invalid last name")
	}

	if c.Password.Present() && utf8.RuneCountInString(c.Password.Value()) < MinPasswordLength {
		return fail(fmt.Sprintf("password length should be greater than %d", MinPasswordLength))
	}

	return Result{}
}

// govalidator treats "" as alpha.
func isName(s string) bool {
	return s != "" && govalidator.IsAlpha(s)
}
