package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"flowfin/config"
	"flowfin/internal/accounts"
	"flowfin/internal/auth"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email            string `json:"email" binding:"required"`
	Password         string `json:"password" binding:"required"`
	FullName         string `json:"fullName"`
	OrganizationName string `json:"organizationName"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterHandler signs up a user and, when an organization name is given,
// their first organization.
func RegisterHandler(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := accounts.Register(config.DB, accounts.Registration{
		Email:            input.Email,
		Password:         input.Password,
		FullName:         input.FullName,
		OrganizationName: input.OrganizationName,
	})
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, accounts.ErrInvalidEmail), errors.Is(err, accounts.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		respondDBError(c, err, "Failed to register user")
		return
	}

	var orgID uint
	if res.Organization != nil {
		orgID = res.Organization.ID
	}
	token, ok := issueSession(c, res.User.ID, orgID)
	if !ok {
		return
	}

	slog.Info("User registered", "user_id", res.User.ID, "org_id", orgID)
	c.JSON(http.StatusCreated, gin.H{
		"token":        token,
		"user":         res.User.Response(),
		"organization": res.Organization,
	})
}

// LoginHandler checks credentials and opens a session in the user's default organization.
func LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := config.DB.Where("email = ?", accounts.NormalizeEmail(input.Email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondDBError(c, err, "Failed to load user")
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if user.Status == models.UserStatusDisabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is disabled"})
		return
	}

	profile, err := accounts.EnsureProfile(config.DB, user)
	if err != nil {
		respondDBError(c, err, "Failed to load profile")
		return
	}

	orgID := profile.DefaultOrganizationID
	if orgID != 0 {
		var count int64
		if err := config.DB.Model(&models.Membership{}).
			Where("organization_id = ? AND user_id = ?", orgID, user.ID).
			Count(&count).Error; err != nil {
			respondDBError(c, err, "Failed to load membership")
			return
		}
		if count == 0 {
			orgID = 0
		}
	}

	token, ok := issueSession(c, user.ID, orgID)
	if !ok {
		return
	}

	slog.Info("User logged in", "user_id", user.ID, "org_id", orgID)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Response(), "organizationId": orgID})
}

// LogoutHandler clears the session cookie.
func LogoutHandler(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", config.App.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// issueSession signs a token and mirrors it into the auth cookie.
func issueSession(c *gin.Context, userID, orgID uint) (string, bool) {
	token, err := auth.IssueToken(userID, orgID)
	if err != nil {
		slog.Error("Failed to sign token", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return "", false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(config.App.TokenTTL.Seconds()), "/", "", config.App.CookieSecure, true)
	return token, true
}
