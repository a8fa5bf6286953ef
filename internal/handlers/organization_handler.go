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

type MemberInput struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type MemberRoleInput struct {
	Role string `json:"role" binding:"required"`
}

type memberResponse struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// ListOrganizationsHandler lists the organizations the caller belongs to.
func ListOrganizationsHandler(c *gin.Context) {
	var memberships []models.Membership
	if err := config.DB.Preload("Organization").
		Where("user_id = ?", currentUserID(c)).
		Order("id asc").
		Find(&memberships).Error; err != nil {
		respondDBError(c, err, "Failed to load organizations")
		return
	}

	type orgItem struct {
		Organization *models.Organization `json:"organization"`
		Role         string               `json:"role"`
		Active       bool                 `json:"active"`
	}
	items := make([]orgItem, 0, len(memberships))
	for _, m := range memberships {
		if m.Organization == nil {
			continue
		}
		items = append(items, orgItem{Organization: m.Organization, Role: m.Role, Active: m.OrganizationID == currentOrgID(c)})
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// CreateOrganizationHandler creates another organization owned by the caller.
func CreateOrganizationHandler(c *gin.Context) {
	var input accounts.OrgSettings
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	var org models.Organization
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		org, err = accounts.CreateOrganization(tx, userID, input)
		if err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).
			Where("user_id = ? AND default_organization_id = 0", userID).
			Update("default_organization_id", org.ID).Error
	})
	if err != nil {
		if status, ok := settingsErrorStatus(err); ok {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		respondDBError(c, err, "Failed to create organization")
		return
	}

	slog.Info("Organization created", "org_id", org.ID, "user_id", userID)
	c.JSON(http.StatusCreated, org)
}

// SwitchOrganizationHandler reissues the session for another organization of the caller.
func SwitchOrganizationHandler(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := currentUserID(c)

	var membership models.Membership
	if err := config.DB.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}
		respondDBError(c, err, "Failed to load membership")
		return
	}

	if err := config.DB.Model(&models.Profile{}).Where("user_id = ?", userID).
		Update("default_organization_id", orgID).Error; err != nil {
		respondDBError(c, err, "Failed to update profile")
		return
	}

	token, ok := issueSession(c, userID, orgID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "organizationId": orgID, "role": membership.Role})
}

// GetOrganizationHandler returns the active organization.
func GetOrganizationHandler(c *gin.Context) {
	var org models.Organization
	if err := config.DB.First(&org, currentOrgID(c)).Error; err != nil {
		respondDBError(c, err, "Failed to load organization")
		return
	}
	c.JSON(http.StatusOK, org)
}

// UpdateOrganizationHandler edits the active organization's settings.
func UpdateOrganizationHandler(c *gin.Context) {
	var input accounts.OrgSettings
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org models.Organization
	if err := config.DB.First(&org, currentOrgID(c)).Error; err != nil {
		respondDBError(c, err, "Failed to load organization")
		return
	}
	if err := accounts.ApplySettings(&org, input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := config.DB.Save(&org).Error; err != nil {
		respondDBError(c, err, "Failed to save organization")
		return
	}
	c.JSON(http.StatusOK, org)
}

// ListMembersHandler lists the members of the active organization.
func ListMembersHandler(c *gin.Context) {
	var memberships []models.Membership
	if err := config.DB.Preload("User").
		Where("organization_id = ?", currentOrgID(c)).
		Order("id asc").
		Find(&memberships).Error; err != nil {
		respondDBError(c, err, "Failed to load members")
		return
	}

	out := make([]memberResponse, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, toMemberResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// AddMemberHandler adds an existing user to the active organization.
func AddMemberHandler(c *gin.Context) {
	var input MemberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidRole(input.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}
	if input.Role == models.RoleOwner && c.GetString("role") != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only owners can add owners"})
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", accounts.NormalizeEmail(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No user with this email"})
			return
		}
		respondDBError(c, err, "Failed to load user")
		return
	}

	orgID := currentOrgID(c)
	var exists int64
	if err := config.DB.Model(&models.Membership{}).
		Where("organization_id = ? AND user_id = ?", orgID, user.ID).Count(&exists).Error; err != nil {
		respondDBError(c, err, "Failed to check membership")
		return
	}
	if exists > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
		return
	}

	membership := models.Membership{OrganizationID: orgID, UserID: user.ID, Role: input.Role}
	if err := config.DB.Create(&membership).Error; err != nil {
		respondDBError(c, err, "Failed to add member")
		return
	}
	membership.User = &user

	slog.Info("Member added", "org_id", orgID, "user_id", user.ID, "role", input.Role)
	c.JSON(http.StatusCreated, toMemberResponse(membership))
}

// UpdateMemberHandler changes a member's role.
func UpdateMemberHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input MemberRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidRole(input.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	var membership models.Membership
	if !findInTenant(c, &membership, id, "Member") {
		return
	}
	callerIsOwner := c.GetString("role") == models.RoleOwner
	if (membership.Role == models.RoleOwner || input.Role == models.RoleOwner) && !callerIsOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only owners can change owners"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if membership.Role == models.RoleOwner && input.Role != models.RoleOwner {
			if err := ensureAnotherOwner(tx, membership); err != nil {
				return err
			}
		}
		membership.Role = input.Role
		return tx.Save(&membership).Error
	})
	if errors.Is(err, errLastOwner) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondDBError(c, err, "Failed to update member")
		return
	}

	middleware.InvalidateUserCache(membership.UserID, membership.OrganizationID)
	if err := config.DB.Preload("User").First(&membership, membership.ID).Error; err != nil {
		respondDBError(c, err, "Failed to reload member")
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(membership))
}

// RemoveMemberHandler removes a member from the active organization.
func RemoveMemberHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var membership models.Membership
	if !findInTenant(c, &membership, id, "Member") {
		return
	}
	if membership.Role == models.RoleOwner && c.GetString("role") != models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only owners can remove owners"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if membership.Role == models.RoleOwner {
			if err := ensureAnotherOwner(tx, membership); err != nil {
				return err
			}
		}
		if err := tx.Delete(&membership).Error; err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).
			Where("user_id = ? AND default_organization_id = ?", membership.UserID, membership.OrganizationID).
			Update("default_organization_id", 0).Error
	})
	if errors.Is(err, errLastOwner) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondDBError(c, err, "Failed to remove member")
		return
	}

	middleware.InvalidateUserCache(membership.UserID, membership.OrganizationID)
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

var errLastOwner = errors.New("an organization must keep at least one owner")

func ensureAnotherOwner(tx *gorm.DB, m models.Membership) error {
	var owners int64
	if err := tx.Model(&models.Membership{}).
		Where("organization_id = ? AND role = ? AND id <> ?", m.OrganizationID, models.RoleOwner, m.ID).
		Count(&owners).Error; err != nil {
		return err
	}
	if owners == 0 {
		return errLastOwner
	}
	return nil
}

func toMemberResponse(m models.Membership) memberResponse {
	r := memberResponse{ID: m.ID, UserID: m.UserID, Role: m.Role}
	if m.User != nil {
		r.Email = m.User.Email
		r.FullName = m.User.FullName
	}
	return r
}
