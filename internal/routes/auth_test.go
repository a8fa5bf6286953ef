package routes_test

import (
	"net/http"
	"testing"

	"flowfin/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionBody struct {
	Token          string `json:"token"`
	OrganizationID uint   `json:"organizationId"`
	User           struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Organization *struct {
		ID            uint   `json:"ID"`
		Name          string `json:"name"`
		Currency      string `json:"currency"`
		InvoicePrefix string `json:"invoicePrefix"`
	} `json:"organization"`
}

type profileBody struct {
	User struct {
		Email    string `json:"email"`
		FullName string `json:"fullName"`
	} `json:"user"`
	OrganizationID uint     `json:"organizationId"`
	Role           string   `json:"role"`
	Permissions    []string `json:"permissions"`
}

func TestRegisterLoginAndProfile(t *testing.T) {
	e := newEnv(t)

	var reg sessionBody
	e.mustDo(http.MethodPost, "/auth/register", "", map[string]string{
		"email":            "  New.User@Example.com ",
		"password":         "s3cret-pass",
		"fullName":         "New User",
		"organizationName": "New Co",
	}, http.StatusCreated, &reg)
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, "new.user@example.com", reg.User.Email)
	require.NotNil(t, reg.Organization)
	assert.Equal(t, "New Co", reg.Organization.Name)
	assert.Equal(t, "USD", reg.Organization.Currency)
	assert.Equal(t, "INV", reg.Organization.InvoicePrefix)

	var login sessionBody
	e.mustDo(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "new.user@example.com",
		"password": "s3cret-pass",
	}, http.StatusOK, &login)
	assert.Equal(t, reg.Organization.ID, login.OrganizationID)

	var me profileBody
	e.mustDo(http.MethodGet, "/api/me", login.Token, nil, http.StatusOK, &me)
	assert.Equal(t, "New User", me.User.FullName)
	assert.Equal(t, models.RoleOwner, me.Role)
	assert.Contains(t, me.Permissions, models.PermMembersManage)

	rec := e.do(http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "auth_token=;")
}

func TestRegisterRejectsBadInput(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "owner@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "owner@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", e.owner.User.ID).
		Update("status", models.UserStatusDisabled).Error)
	rec = e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "owner@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProtectedRoutesNeedAValidToken(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/invoices", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/invoices", "garbage", nil).Code)

	// a token for an organization the user does not belong to
	other := e.register("other@example.com", "Other Org")
	rec := e.do(http.MethodGet, "/api/invoices", tokenFor(t, e.owner.User.ID, other.Org.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfileChangesPassword(t *testing.T) {
	e := newEnv(t)
	token := e.owner.Token

	rec := e.do(http.MethodPut, "/api/me", token, map[string]string{"newPassword": "another-pass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/api/me", token, map[string]string{"oldPassword": "nope", "newPassword": "another-pass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.mustDo(http.MethodPut, "/api/me", token, map[string]string{
		"fullName": "Owner Renamed", "oldPassword": "password123", "newPassword": "another-pass",
	}, http.StatusOK, nil)

	rec = e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "owner@example.com", "password": "another-pass",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var me profileBody
	e.mustDo(http.MethodGet, "/api/me", token, nil, http.StatusOK, &me)
	assert.Equal(t, "Owner Renamed", me.User.FullName)
}
