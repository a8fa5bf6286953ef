package handlers

import (
	"net/http"
	"strings"

	"flowfin/config"
	"flowfin/internal/accounts"
	"flowfin/internal/auth"
	"flowfin/internal/middleware"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UpdateProfileInput struct {
	FullName    *string `json:"fullName"`
	DisplayName *string `json:"displayName"`
	Phone       *string `json:"phone"`
	OldPassword string  `json:"oldPassword"`
	NewPassword string  `json:"newPassword"`
}

// GetProfileHandler returns the caller, their profile and their role in the active organization.
func GetProfileHandler(c *gin.Context) {
	userID := currentUserID(c)

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	profile, err := accounts.EnsureProfile(config.DB, user)
	if err != nil {
		respondDBError(c, err, "Failed to load profile")
		return
	}

	permissions, _ := c.Get("permissions")
	c.JSON(http.StatusOK, gin.H{
		"user":           user.Response(),
		"profile":        profile,
		"organizationId": currentOrgID(c),
		"role":           c.GetString("role"),
		"permissions":    permissions,
	})
}

// UpdateProfileHandler updates names and phone; a password change needs the old password.
func UpdateProfileHandler(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if input.NewPassword != "" {
		if input.OldPassword == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "The old password is required to set a new one"})
			return
		}
		if !auth.CheckPassword(user.PasswordHash, input.OldPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "The old password is incorrect"})
			return
		}
		if len(input.NewPassword) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": accounts.ErrWeakPassword.Error()})
			return
		}
		hash, err := auth.HashPassword(input.NewPassword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash new password"})
			return
		}
		user.PasswordHash = hash
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}

	var profile models.Profile
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		var err error
		if profile, err = accounts.EnsureProfile(tx, user); err != nil {
			return err
		}
		if input.DisplayName != nil {
			profile.DisplayName = strings.TrimSpace(*input.DisplayName)
		}
		if input.Phone != nil {
			profile.Phone = strings.TrimSpace(*input.Phone)
		}
		return tx.Save(&profile).Error
	})
	if err != nil {
		respondDBError(c, err, "Failed to save profile")
		return
	}

	invalidateAllMemberships(user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user.Response(), "profile": profile})
}

// invalidateAllMemberships drops the user's cache entries in every organization.
func invalidateAllMemberships(userID uint) {
	if config.RDB == nil {
		return
	}
	var orgIDs []uint
	config.DB.Model(&models.Membership{}).Where("user_id = ?", userID).Pluck("organization_id", &orgIDs)
	middleware.InvalidateUserCache(userID, append(orgIDs, 0)...)
}
