package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memberID = "3f0c6a8e-2b8e-4c61-9d1c-2a1f6c0e9b11"

// TestRegisterRoutes verifies that every public route is mounted.
func TestRegisterRoutes(t *testing.T) {
	h := newHarness(t)

	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/"},
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodGet, "/api/v1/auth/resend-otp"},
		{http.MethodGet, "/api/v1/auth/otp-status"},
		{http.MethodPost, "/api/v1/auth/verify"},
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPost, "/api/v1/auth/forgot-password"},
		{http.MethodPut, "/api/v1/auth/update-password"},
		{http.MethodGet, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/auth/reauthenticate"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s_%s_exists", tc.method, tc.path), func(t *testing.T) {
			res := h.do(t, tc.method, tc.path, nil)
			assert.NotEqual(t, http.StatusNotFound, res.status)
		})
	}
}

func TestUserRoutesRequireLogin(t *testing.T) {
	h := newHarness(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/user/me"},
		{http.MethodGet, "/api/v1/user/all"},
		{http.MethodGet, "/api/v1/user/find/" + memberID},
		{http.MethodPut, "/api/v1/user/change-status/" + memberID},
		{http.MethodPut, "/api/v1/user/update"},
		{http.MethodPost, "/api/v1/user/delete-account"},
	}
	for _, p := range paths {
		t.Run(p.path, func(t *testing.T) {
			res := h.do(t, p.method, p.path, nil)
			assert.Equal(t, http.StatusUnauthorized, res.status)
			assert.Equal(t, "please login to continue", res.message())
		})
	}

	t.Run("malformed token", func(t *testing.T) {
		res := h.do(t, http.MethodGet, "/api/v1/user/me", nil, "Authorization", "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, res.status)
		assert.Equal(t, "invalid token", res.message())
	})
}

func TestRequireRoleMiddleware(t *testing.T) {
	h := newHarness(t)
	member := h.seed(t, domain.User{ID: memberID, FirstName: "John", Email: "john@example.com"}, "longenough")
	admin := h.seed(t, domain.User{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}, "longenough")

	t.Run("fails for non-admin user", func(t *testing.T) {
		res := h.do(t, http.MethodGet, "/api/v1/user/all", nil, h.bearer(t, member)...)
		assert.Equal(t, http.StatusForbidden, res.status)
		assert.Equal(t, "user cannot access this resource", res.message())
	})

	t.Run("lists users for admin", func(t *testing.T) {
		res := h.do(t, http.MethodGet, "/api/v1/user/all", nil, h.bearer(t, admin)...)
		require.Equal(t, http.StatusOK, res.status, res.body)
		assert.Len(t, res.body["users"], 2)
	})

	t.Run("finds a user", func(t *testing.T) {
		res := h.do(t, http.MethodGet, "/api/v1/user/find/"+memberID, nil, h.bearer(t, admin)...)
		require.Equal(t, http.StatusOK, res.status, res.body)
		assert.Equal(t, "john@example.com", res.body["user"].(map[string]interface{})["email"])

		res = h.do(t, http.MethodGet, "/api/v1/user/find/unknown", nil, h.bearer(t, admin)...)
		assert.Equal(t, http.StatusNotFound, res.status)
		assert.Equal(t, "user not found", res.message())
	})

	t.Run("status validation", func(t *testing.T) {
		res := h.do(t, http.MethodPut, "/api/v1/user/change-status/"+memberID, map[string]interface{}{}, h.bearer(t, admin)...)
		assert.Equal(t, "status is required", res.message())

		res = h.do(t, http.MethodPut, "/api/v1/user/change-status/"+memberID,
			map[string]interface{}{"status": "banned"}, h.bearer(t, admin)...)
		assert.Equal(t, "invalid status", res.message())
	})

	t.Run("deactivated user is locked out", func(t *testing.T) {
		res := h.do(t, http.MethodPut, "/api/v1/user/change-status/"+memberID,
			map[string]interface{}{"status": "inactive"}, h.bearer(t, admin)...)
		require.Equal(t, http.StatusOK, res.status, res.body)

		res = h.do(t, http.MethodGet, "/api/v1/user/me", nil, h.bearer(t, member)...)
		assert.Equal(t, http.StatusForbidden, res.status)
		assert.Equal(t, "user account is currently inactive. please contact support for assistance", res.message())
	})
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	member := h.seed(t, domain.User{ID: memberID, FirstName: "John", Email: "john@example.com"}, "longenough")
	h.seed(t, domain.User{ID: "other", Email: "taken@example.com"}, "longenough")

	res := h.do(t, http.MethodPut, "/api/v1/user/update", map[string]interface{}{"firstName": "jane"}, h.bearer(t, member)...)
	assert.Equal(t, "missing fields: lastName, email", res.message())

	res = h.do(t, http.MethodPut, "/api/v1/user/update",
		map[string]interface{}{"firstName": "jane", "lastName": "doe", "email": "taken@example.com"}, h.bearer(t, member)...)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "email already exist", res.message())

	res = h.do(t, http.MethodPut, "/api/v1/user/update",
		map[string]interface{}{"firstName": "jane", "lastName": "doe", "email": "jane@example.com"}, h.bearer(t, member)...)
	require.Equal(t, http.StatusOK, res.status, res.body)
	user := res.body["user"].(map[string]interface{})
	assert.Equal(t, "Jane", user["firstName"])
	assert.Equal(t, "jane@example.com", user["email"])
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	member := h.seed(t, domain.User{ID: memberID, FirstName: "John", Email: "john@example.com"}, "longenough")
	auth := h.bearer(t, member)

	res := h.do(t, http.MethodPost, "/api/v1/user/delete-account", map[string]interface{}{}, auth...)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "reason is required", res.message())

	res = h.do(t, http.MethodPost, "/api/v1/user/delete-account", map[string]interface{}{"reason": "leaving"}, auth...)
	require.Equal(t, http.StatusCreated, res.status, res.body)
	assert.Equal(t, "Account Permanently Deleted", h.inbox.last().Subject)

	// the old token no longer works
	res = h.do(t, http.MethodGet, "/api/v1/user/me", nil, auth...)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = h.do(t, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"email": "john@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusNotFound, res.status)

	// the email is free again
	res = h.do(t, http.MethodPost, "/api/v1/auth/register", registration)
	assert.Equal(t, http.StatusOK, res.status)
}
