package handler

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/dto"
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/service"
	autherror "github.com/AnthoniusHendriyanto/otp-auth-service/internal/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultSessionTTL = 30 * time.Minute

type Options struct {
	SessionTTL    time.Duration
	SecureCookies bool
}

type AuthHandler struct {
	users         *service.UserService
	accounts      *service.AccountService
	tokens        service.TokenGenerator
	log           *zap.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(users *service.UserService, accounts *service.AccountService, tokens service.TokenGenerator,
	log *zap.Logger, opts Options) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	return &AuthHandler{
		users:         users,
		accounts:      accounts,
		tokens:        tokens,
		log:           log,
		sessionTTL:    opts.SessionTTL,
		secureCookies: opts.SecureCookies,
	}
}

// parseBody decodes the request body. An empty body decodes to the zero value.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return autherror.ErrInvalidInput
	}
	return nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	sid := h.startSession(c)
	out, err := h.users.Register(c.UserContext(), sid, input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "otp": out})
}

func (h *AuthHandler) ResendOtp(c *fiber.Ctx) error {
	out, err := h.users.ResendOtp(c.UserContext(), sessionID(c), c.QueryBool("reset", false))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "otp": out})
}

func (h *AuthHandler) OtpStatus(c *fiber.Ctx) error {
	out, err := h.users.OtpStatus(c.UserContext(), sessionID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "otp": out})
}

// unmatchable never equals an issued code.
const unmatchable = -1

// parseVerify enforces the JSON types of otp and reset before any lookup happens.
// Any JSON number is accepted. Numbers that cannot be an issued code map to unmatchable.
func parseVerify(input dto.VerifyInput) (int, bool, error) {
	if isNull(input.Otp) {
		return 0, false, autherror.ErrOtpRequired
	}
	var n float64
	if err := json.Unmarshal(input.Otp, &n); err != nil {
		return 0, false, autherror.ErrInvalidOtp
	}
	code := unmatchable
	if n == math.Trunc(n) && n >= 0 && n <= math.MaxInt32 {
		code = int(n)
	}

	reset := false
	if !isNull(input.Reset) {
		if err := json.Unmarshal(input.Reset, &reset); err != nil {
			return 0, false, autherror.ErrInvalidReset
		}
	}
	return code, reset, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var input dto.VerifyInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}
	code, reset, err := parseVerify(input)
	if err != nil {
		return respondError(c, h.log, err)
	}

	out, err := h.users.Verify(c.UserContext(), sessionID(c), code, reset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if reset {
		return ok(c, fiber.StatusOK)
	}
	return h.sendToken(c, fiber.StatusCreated, out)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	out, err := h.users.Login(c.UserContext(), input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.sendToken(c, fiber.StatusOK, out)
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	sid := h.startSession(c)
	out, err := h.users.ForgotPassword(c.UserContext(), sid, input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "otp": out})
}

func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	var input dto.UpdatePasswordInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.users.UpdatePassword(c.UserContext(), sessionID(c), input); err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := sessionID(c); sid != "" {
		if err := h.users.Logout(c.UserContext(), sid); err != nil {
			return respondError(c, h.log, err)
		}
	}
	h.clearCookies(c)
	return ok(c, fiber.StatusOK)
}

func (h *AuthHandler) Reauthenticate(c *fiber.Ctx) error {
	out, err := h.users.Reauthenticate(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return h.sendToken(c, fiber.StatusOK, out)
}

func (h *AuthHandler) sendToken(c *fiber.Ctx, status int, out *dto.AuthOutput) error {
	h.setToken(c, out.Token)
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"user":    out.User,
		"token":   out.Token,
	})
}

func currentUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(userLocal).(*domain.User)
	return user
}
