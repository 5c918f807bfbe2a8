package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/dto"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/validator"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const userLocal = "user"

// CredentialCheck selects which fields a route requires before validation.
type CredentialCheck int

const (
	CheckRegister CredentialCheck = iota
	CheckLogin
	CheckForgot
	CheckReset
	CheckUpdate
)

func (k CredentialCheck) required() []string {
	switch k {
	case CheckLogin, CheckReset:
		return []string{"password"}
	case CheckRegister:
		return []string{"firstName", "lastName", "email", "password"}
	case CheckUpdate:
		return []string{"firstName", "lastName", "email"}
	default:
		return nil
	}
}

// ValidateCredentials rejects bodies with missing or malformed credential fields.
func (h *AuthHandler) ValidateCredentials(check CredentialCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input dto.RegisterInput
		if err := parseBody(c, &input); err != nil {
			return respondError(c, h.log, err)
		}

		var missing []string
		for _, field := range check.required() {
			if !input.Field(field).Present() {
				missing = append(missing, field)
			}
		}

		if check == CheckLogin || check == CheckForgot {
			if input.Email.Blank() && input.Phone.Blank() {
				return respondError(c, h.log, autherror.Request("either email or phone is required"))
			}
			if len(missing) > 0 {
				return respondError(c, h.log, autherror.ErrPasswordRequired)
			}
		} else if len(missing) > 0 {
			return respondError(c, h.log, autherror.MissingFields(missing))
		}

		res := validator.Validate(validator.Credentials{
			Email:     input.Email,
			Phone:     input.Phone,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Password:  input.Password,
			IsLogin:   check == CheckLogin,
		})
		if res.Error {
			return respondError(c, h.log, autherror.Request(res.Message))
		}
		return c.Next()
	}
}

// RequireAuth resolves the caller from the token cookie or a bearer header.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	token := c.Cookies(TokenCookie)
	if token == "" {
		if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if token == "" {
		h.clearCookies(c)
		return respondError(c, h.log, autherror.ErrLoginRequired)
	}

	claims, err := h.tokens.VerifyAccessToken(token)
	if err != nil {
		h.clearCookies(c)
		return respondError(c, h.log, autherror.ErrInvalidToken)
	}

	user, err := h.accounts.CurrentUser(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Locals(userLocal, user)
	return c.Next()
}

// RequireActive must run after RequireAuth.
func (h *AuthHandler) RequireActive(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return respondError(c, h.log, autherror.ErrLoginRequired)
	}
	if !user.Active() {
		return respondError(c, h.log, autherror.RoleInactive(string(user.Role)))
	}
	return c.Next()
}

func (h *AuthHandler) RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(c)
		if user == nil {
			return respondError(c, h.log, autherror.ErrLoginRequired)
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return respondError(c, h.log, autherror.RoleForbidden(string(user.Role)))
	}
}

// RequestLogger logs every request and records its latency.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path

		metrics.HTTPRequestDuration.
			WithLabelValues(c.Method(), route, strconv.Itoa(status)).
			Observe(elapsed.Seconds())
		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.Any("request_id", c.Locals("requestid")),
		)
		return err
	}
}
