package handler

import (
	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, apiVersion string) {
	base := "/api/" + apiVersion
	api := app.Group(base)
	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "path": base})
	})

	auth := api.Group("/auth")
	auth.Post("/register", h.ValidateCredentials(CheckRegister), h.Register)
	auth.Get("/resend-otp", h.ResendOtp)
	auth.Get("/otp-status", h.OtpStatus)
	auth.Post("/verify", h.Verify)
	auth.Post("/login", h.ValidateCredentials(CheckLogin), h.Login)
	auth.Post("/forgot-password", h.ValidateCredentials(CheckForgot), h.ForgotPassword)
	auth.Put("/update-password", h.ValidateCredentials(CheckReset), h.UpdatePassword)
	auth.Get("/logout", h.Logout)
	auth.Get("/reauthenticate", h.RequireAuth, h.RequireActive, h.Reauthenticate)

	user := api.Group("/user", h.RequireAuth, h.RequireActive)
	user.Get("/me", h.Me)
	user.Put("/update", h.ValidateCredentials(CheckUpdate), h.UpdateProfile)
	user.Post("/delete-account", h.DeleteAccount)

	// Admin-only endpoints
	admin := h.RequireRole(domain.RoleAdmin)
	user.Get("/all", admin, h.ListUsers)
	user.Get("/find/:id", admin, h.FindUser)
	user.Put("/change-status/:id", admin, h.ChangeStatus)
}
