package handler

import (
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/dto"
	"github.com/gofiber/fiber/v2"
)

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserOutput(currentUser(c)),
	})
}

func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.List(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "users": users})
}

func (h *AuthHandler) FindUser(c *fiber.Ctx) error {
	user, err := h.accounts.Find(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "user": user})
}

func (h *AuthHandler) ChangeStatus(c *fiber.Ctx) error {
	var input dto.ChangeStatusInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.accounts.ChangeStatus(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "user": user})
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var input dto.UpdateProfileInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.accounts.UpdateProfile(c.UserContext(), currentUser(c), input)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "user": user})
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	var input dto.DeleteAccountInput
	if err := parseBody(c, &input); err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.accounts.DeleteAccount(c.UserContext(), currentUser(c), input); err != nil {
		return respondError(c, h.log, err)
	}
	h.clearCookies(c)
	return ok(c, fiber.StatusCreated)
}
