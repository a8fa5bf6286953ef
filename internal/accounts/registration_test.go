package accounts_test

import (
	"testing"

	"flowfin/internal/accounts"
	"flowfin/internal/testutil"
	"flowfin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRegisterCreatesUserProfileAndOrganization(t *testing.T) {
	db := testutil.NewDB(t)

	res, err := accounts.Register(db, accounts.Registration{
		Email:            "  Owner@Example.com ",
		Password:         "password123",
		FullName:         "Olive Owner",
		OrganizationName: "Olive's Bakery",
	})
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", res.User.Email)
	assert.NotEqual(t, "password123", res.User.PasswordHash)
	require.NotNil(t, res.Organization)
	assert.Equal(t, "Olive's Bakery", res.Organization.Name)
	assert.Equal(t, "USD", res.Organization.Currency)
	assert.Equal(t, "INV", res.Organization.InvoicePrefix)
	assert.Equal(t, res.Organization.ID, res.Profile.DefaultOrganizationID)

	var m models.Membership
	require.NoError(t, db.Where("user_id = ?", res.User.ID).First(&m).Error)
	assert.Equal(t, models.RoleOwner, m.Role)
	assert.Equal(t, res.Organization.ID, m.OrganizationID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := accounts.Register(db, accounts.Registration{Email: "a@b.co", Password: "password123"})
	require.NoError(t, err)

	_, err = accounts.Register(db, accounts.Registration{Email: "A@B.CO", Password: "password456"})
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.EqualValues(t, 1, users)
}

func TestRegisterValidation(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := accounts.Register(db, accounts.Registration{Email: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, accounts.ErrInvalidEmail)

	_, err = accounts.Register(db, accounts.Registration{Email: "x@y.z", Password: "short"})
	assert.ErrorIs(t, err, accounts.ErrWeakPassword)
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	res, err := accounts.Register(db, accounts.Registration{Email: "p@q.r", Password: "password123", FullName: "Pat"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		p, err := accounts.EnsureProfile(db, res.User)
		require.NoError(t, err)
		assert.Equal(t, res.Profile.ID, p.ID)
		assert.Equal(t, "Pat", p.DisplayName)
	}

	var profiles int64
	db.Model(&models.Profile{}).Where("user_id = ?", res.User.ID).Count(&profiles)
	assert.EqualValues(t, 1, profiles)
}

func TestEnsureOrganizationReturnsExisting(t *testing.T) {
	db := testutil.NewDB(t)
	res, err := accounts.Register(db, accounts.Registration{Email: "e@f.g", Password: "password123"})
	require.NoError(t, err)
	require.Nil(t, res.Organization)

	var first, second models.Organization
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		first, err = accounts.EnsureOrganization(tx, res.User, accounts.OrgSettings{Name: "Acme"})
		return err
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		second, err = accounts.EnsureOrganization(tx, res.User, accounts.OrgSettings{Name: "Acme again"})
		return err
	}))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme", second.Name)

	var orgs int64
	db.Model(&models.Organization{}).Count(&orgs)
	assert.EqualValues(t, 1, orgs)
}

func TestCreateOrganizationRequiresName(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := accounts.CreateOrganization(db, 1, accounts.OrgSettings{Name: "  "})
	assert.ErrorIs(t, err, accounts.ErrOrgNameRequired)
}

func TestApplySettings(t *testing.T) {
	org := models.Organization{Name: "Old", Currency: "USD", InvoicePrefix: "INV"}
	rate := decimal.RequireFromString("7.5")
	terms := 14

	require.NoError(t, accounts.ApplySettings(&org, accounts.OrgSettings{
		Name: "New", Currency: "eur", TaxRate: &rate, PaymentTermsDays: &terms,
	}))
	assert.Equal(t, "New", org.Name)
	assert.Equal(t, "EUR", org.Currency)
	assert.Equal(t, "INV", org.InvoicePrefix)
	assert.Equal(t, 14, org.PaymentTermsDays)
	assert.True(t, rate.Equal(org.TaxRate))

	assert.ErrorIs(t, accounts.ApplySettings(&org, accounts.OrgSettings{Currency: "EURO"}), accounts.ErrBadCurrency)
	bad := decimal.NewFromInt(101)
	assert.ErrorIs(t, accounts.ApplySettings(&org, accounts.OrgSettings{TaxRate: &bad}), accounts.ErrBadTaxRate)
}
