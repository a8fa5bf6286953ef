package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"flowfin/config"
	"flowfin/internal/accounts"
	"flowfin/internal/middleware"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetSetupStatusHandler tells the client whether onboarding is finished.
func GetSetupStatusHandler(c *gin.Context) {
	orgID := currentOrgID(c)
	if orgID == 0 {
		c.JSON(http.StatusOK, gin.H{"hasOrganization": false, "setupCompleted": false, "organization": nil})
		return
	}

	var org models.Organization
	if err := config.DB.First(&org, orgID).Error; err != nil {
		respondDBError(c, err, "Failed to load organization")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasOrganization": true, "setupCompleted": org.SetupCompleted, "organization": org})
}

// CompleteSetupHandler creates the caller's organization on first use, or
// finishes configuring the active one. Re-submitting is harmless.
func CompleteSetupHandler(c *gin.Context) {
	var input accounts.OrgSettings
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	orgID := currentOrgID(c)
	if orgID != 0 && c.GetString("role") != models.RoleOwner && c.GetString("role") != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var org models.Organization
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if orgID == 0 {
			var user models.User
			if err := tx.First(&user, userID).Error; err != nil {
				return err
			}
			created, err := accounts.EnsureOrganization(tx, user, input)
			if err != nil {
				return err
			}
			org = created
		} else if err := tx.First(&org, orgID).Error; err != nil {
			return err
		}

		if err := accounts.ApplySettings(&org, input); err != nil {
			return err
		}
		org.SetupCompleted = true
		return tx.Save(&org).Error
	})
	if err != nil {
		if status, ok := settingsErrorStatus(err); ok {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		respondDBError(c, err, "Failed to complete setup")
		return
	}

	middleware.InvalidateUserCache(userID, org.ID)
	token, ok := issueSession(c, userID, org.ID)
	if !ok {
		return
	}
	slog.Info("Organization setup completed", "org_id", org.ID, "user_id", userID)
	c.JSON(http.StatusOK, gin.H{"token": token, "organization": org})
}

func settingsErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, accounts.ErrOrgNameRequired),
		errors.Is(err, accounts.ErrBadCurrency),
		errors.Is(err, accounts.ErrBadTaxRate):
		return http.StatusBadRequest, true
	}
	return 0, false
}
