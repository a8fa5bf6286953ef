// Package accounts creates users, their profiles and their organizations.
// Every write path for these rows goes through here so a user always ends
// up with exactly one profile, whatever order the calls arrive in.
package accounts

import (
	"errors"
	"fmt"
	"strings"

	"flowfin/internal/auth"
	"flowfin/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmailTaken      = errors.New("email is already registered")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
	ErrInvalidEmail    = errors.New("email is invalid")
	ErrOrgNameRequired = errors.New("organization name is required")
	ErrBadCurrency     = errors.New("currency must be a 3-letter code")
	ErrBadTaxRate      = errors.New("tax rate must be between 0 and 100")
)

// Registration is the input of a new sign-up.
type Registration struct {
	Email            string
	Password         string
	FullName         string
	OrganizationName string
}

// OrgSettings are the editable fields of an organization. Zero values are
// left untouched on update.
type OrgSettings struct {
	Name             string           `json:"name"`
	Currency         string           `json:"currency"`
	TaxRate          *decimal.Decimal `json:"taxRate"`
	InvoicePrefix    string           `json:"invoicePrefix"`
	PaymentTermsDays *int             `json:"paymentTermsDays"`
	Address          string           `json:"address"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
}

// Result is what a registration produced.
type Result struct {
	User         models.User
	Profile      models.Profile
	Organization *models.Organization
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user, their profile and optionally their first
// organization in one transaction.
func Register(db *gorm.DB, in Registration) (Result, error) {
	email := NormalizeEmail(in.Email)
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return Result{}, ErrInvalidEmail
	}
	if len(in.Password) < 8 {
		return Result{}, ErrWeakPassword
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	var res Result
	err = db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		res.User = models.User{
			Email:        email,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(in.FullName),
			Status:       models.UserStatusActive,
		}
		if err := tx.Create(&res.User).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}

		profile, err := EnsureProfile(tx, res.User)
		if err != nil {
			return err
		}
		res.Profile = profile

		if name := strings.TrimSpace(in.OrganizationName); name != "" {
			org, err := EnsureOrganization(tx, res.User, OrgSettings{Name: name})
			if err != nil {
				return err
			}
			res.Organization = &org
			res.Profile.DefaultOrganizationID = org.ID
		}
		return nil
	})
	return res, err
}

// EnsureProfile guarantees the user has a profile row and returns it. It is
// safe to call any number of times and concurrently.
func EnsureProfile(tx *gorm.DB, user models.User) (models.Profile, error) {
	seed := models.Profile{UserID: user.ID, DisplayName: user.FullName}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return models.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}

	var profile models.Profile
	if err := tx.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		return models.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// EnsureOrganization returns the user's default organization, creating it
// with the user as owner when there is none yet.
func EnsureOrganization(tx *gorm.DB, user models.User, settings OrgSettings) (models.Organization, error) {
	profile, err := EnsureProfile(tx, user)
	if err != nil {
		return models.Organization{}, err
	}

	if profile.DefaultOrganizationID != 0 {
		var org models.Organization
		err := tx.Joins("JOIN memberships ON memberships.organization_id = organizations.id").
			Where("organizations.id = ? AND memberships.user_id = ?", profile.DefaultOrganizationID, user.ID).
			First(&org).Error
		if err == nil {
			return org, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Organization{}, err
		}
	}

	org, err := CreateOrganization(tx, user.ID, settings)
	if err != nil {
		return models.Organization{}, err
	}
	if err := tx.Model(&models.Profile{}).Where("user_id = ?", user.ID).
		Update("default_organization_id", org.ID).Error; err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// CreateOrganization always creates a new organization owned by userID.
func CreateOrganization(tx *gorm.DB, userID uint, settings OrgSettings) (models.Organization, error) {
	if strings.TrimSpace(settings.Name) == "" {
		return models.Organization{}, ErrOrgNameRequired
	}
	org := models.Organization{
		Currency:          "USD",
		TaxRate:           decimal.Zero,
		InvoicePrefix:     "INV",
		NextInvoiceNumber: 1,
		PaymentTermsDays:  30,
	}
	if err := ApplySettings(&org, settings); err != nil {
		return models.Organization{}, err
	}
	if err := tx.Create(&org).Error; err != nil {
		return models.Organization{}, fmt.Errorf("create organization: %w", err)
	}

	membership := models.Membership{OrganizationID: org.ID, UserID: userID, Role: models.RoleOwner}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&membership).Error
	if err != nil {
		return models.Organization{}, fmt.Errorf("create owner membership: %w", err)
	}
	return org, nil
}

// ApplySettings copies the non-empty settings onto org after validating them.
func ApplySettings(org *models.Organization, s OrgSettings) error {
	if name := strings.TrimSpace(s.Name); name != "" {
		org.Name = name
	}
	if s.Currency != "" {
		cur := strings.ToUpper(strings.TrimSpace(s.Currency))
		if len(cur) != 3 {
			return ErrBadCurrency
		}
		org.Currency = cur
	}
	if s.TaxRate != nil {
		if s.TaxRate.IsNegative() || s.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
			return ErrBadTaxRate
		}
		org.TaxRate = *s.TaxRate
	}
	if p := strings.TrimSpace(s.InvoicePrefix); p != "" {
		org.InvoicePrefix = p
	}
	if s.PaymentTermsDays != nil && *s.PaymentTermsDays >= 0 {
		org.PaymentTermsDays = *s.PaymentTermsDays
	}
	if s.Address != "" {
		org.Address = s.Address
	}
	if s.Email != "" {
		org.Email = s.Email
	}
	if s.Phone != "" {
		org.Phone = s.Phone
	}
	return nil
}
