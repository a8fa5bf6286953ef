// Package testutil wires an in-memory database and authenticated fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"flowfin/config"
	"flowfin/internal/accounts"
	"flowfin/internal/auth"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with the full schema and
// installs it as config.DB for the duration of the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	prevDB, prevRDB, prevKey, prevApp := config.DB, config.RDB, config.JwtKey, config.App
	config.DB = db
	config.RDB = nil
	config.JwtKey = []byte("test-secret")
	config.App = config.Defaults()
	t.Cleanup(func() {
		config.DB, config.RDB, config.JwtKey, config.App = prevDB, prevRDB, prevKey, prevApp
	})

	gin.SetMode(gin.TestMode)
	return db
}

// Member is a registered user with a token bound to an organization.
type Member struct {
	User  models.User
	Org   models.Organization
	Token string
}

// Register signs up a user owning a fresh organization.
func Register(t *testing.T, db *gorm.DB, email, orgName string) Member {
	t.Helper()
	res, err := accounts.Register(db, accounts.Registration{
		Email:            email,
		Password:         "password123",
		FullName:         "Test User",
		OrganizationName: orgName,
	})
	require.NoError(t, err)

	m := Member{User: res.User}
	if res.Organization != nil {
		m.Org = *res.Organization
	}
	m.Token, err = auth.IssueToken(m.User.ID, m.Org.ID)
	require.NoError(t, err)
	return m
}

// AddMember registers a user and joins them to org with role.
func AddMember(t *testing.T, db *gorm.DB, org models.Organization, email, role string) Member {
	t.Helper()
	m := Register(t, db, email, "")
	require.NoError(t, db.Create(&models.Membership{OrganizationID: org.ID, UserID: m.User.ID, Role: role}).Error)

	var err error
	m.Org = org
	m.Token, err = auth.IssueToken(m.User.ID, org.ID)
	require.NoError(t, err)
	return m
}

// Do sends a JSON request through h. A nil body sends no payload.
func Do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals the recorder body into v.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoErrorf(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}
