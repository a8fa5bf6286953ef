package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flowfin/config"
	"flowfin/internal/auth"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const userCacheTTL = 10 * time.Minute

// CachedUserData is everything the request pipeline needs to know about the
// caller within its active organization.
type CachedUserData struct {
	UserID      uint     `json:"user_id"`
	OrgID       uint     `json:"org_id"`
	Login       string   `json:"login"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// UserCacheKey is the redis key of a user's data in one organization.
func UserCacheKey(userID, orgID uint) string {
	return fmt.Sprintf("user:%d:org:%d:data", userID, orgID)
}

// InvalidateUserCache drops cached data for the user in the listed organizations.
func InvalidateUserCache(userID uint, orgIDs ...uint) {
	if config.RDB == nil {
		return
	}
	keys := make([]string, 0, len(orgIDs))
	for _, orgID := range orgIDs {
		keys = append(keys, UserCacheKey(userID, orgID))
	}
	if len(keys) == 0 {
		return
	}
	if err := config.RDB.Del(config.Ctx, keys...).Err(); err != nil {
		slog.Warn("Failed to invalidate user cache", "error", err, "user_id", userID)
	}
}

// AuthMiddleware authenticates the request from the auth_token cookie or a
// bearer header and loads the caller's role in the token's organization.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(auth.CookieName)
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				handleAuthError(c, "Authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handleAuthError(c, "Invalid Authorization header format")
				return
			}
			tokenStr = parts[1]
		}

		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			c.SetCookie(auth.CookieName, "", -1, "/", "", config.App.CookieSecure, true)
			handleAuthError(c, "Invalid or expired token")
			return
		}

		cacheKey := UserCacheKey(claims.UserID, claims.OrgID)
		if config.RDB != nil {
			cached, err := config.RDB.Get(config.Ctx, cacheKey).Result()
			if err == nil {
				var userData CachedUserData
				if json.Unmarshal([]byte(cached), &userData) == nil {
					slog.Debug("User data loaded from cache", "user_id", claims.UserID, "org_id", claims.OrgID)
					setContextAndProceed(c, &userData)
					return
				}
				slog.Warn("Failed to unmarshal cached user data", "user_id", claims.UserID)
			} else if !errors.Is(err, redis.Nil) {
				slog.Error("Redis GET command failed", "error", err, "user_id", claims.UserID)
			}
		}

		userData, status, msg := loadUserData(claims)
		if status != 0 {
			if status == http.StatusUnauthorized {
				c.SetCookie(auth.CookieName, "", -1, "/", "", config.App.CookieSecure, true)
				handleAuthError(c, msg)
				return
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		if config.RDB != nil {
			if payload, err := json.Marshal(userData); err == nil {
				if err := config.RDB.Set(config.Ctx, cacheKey, payload, userCacheTTL).Err(); err != nil {
					slog.Error("Failed to SET user data to cache", "error", err, "user_id", claims.UserID)
				}
			}
		}

		setContextAndProceed(c, &userData)
	}
}

func loadUserData(claims auth.Claims) (CachedUserData, int, string) {
	var user models.User
	if err := config.DB.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CachedUserData{}, http.StatusUnauthorized, "User from token not found"
		}
		return CachedUserData{}, http.StatusInternalServerError, "Database error"
	}
	if user.Status == models.UserStatusDisabled {
		return CachedUserData{}, http.StatusForbidden, "User is disabled"
	}

	data := CachedUserData{UserID: user.ID, Login: user.Email, Permissions: []string{}}
	if claims.OrgID == 0 {
		return data, 0, ""
	}

	var membership models.Membership
	err := config.DB.Where("organization_id = ? AND user_id = ?", claims.OrgID, user.ID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CachedUserData{}, http.StatusUnauthorized, "Not a member of this organization"
		}
		return CachedUserData{}, http.StatusInternalServerError, "Database error"
	}

	data.OrgID = claims.OrgID
	data.Role = membership.Role
	data.Permissions = models.PermissionsForRole(membership.Role)
	return data, 0, ""
}

func setContextAndProceed(c *gin.Context, userData *CachedUserData) {
	c.Set("user_id", userData.UserID)
	c.Set("org_id", userData.OrgID)
	c.Set("login", userData.Login)
	c.Set("role", userData.Role)
	c.Set("permissions", userData.Permissions)
	c.Next()
}

// RequireOrganization stops requests from users that have not finished setup.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetUint("org_id") == 0 {
			c.AbortWithStatusJSON(http.StatusPreconditionRequired, gin.H{"error": "Organization setup required"})
			return
		}
		c.Next()
	}
}

// PermissionMiddleware allows owners through and otherwise requires the permission.
func PermissionMiddleware(requiredPermission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") == models.RoleOwner {
			c.Next()
			return
		}

		permissions, exists := c.Get("permissions")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permissions not found in context"})
			return
		}
		userPermissions, ok := permissions.([]string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Internal permission format error"})
			return
		}

		for _, p := range userPermissions {
			if p == requiredPermission {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	}
}

func handleAuthError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
