package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"flowfin/config"
	"flowfin/internal/finance"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

func currentUserID(c *gin.Context) uint { return c.GetUint("user_id") }

func currentOrgID(c *gin.Context) uint { return c.GetUint("org_id") }

// tenantDB starts a query restricted to the caller's organization.
func tenantDB(c *gin.Context) *gorm.DB {
	return config.DB.Where("organization_id = ?", currentOrgID(c))
}

// parseIDParam reads a positive numeric path parameter, answering 400 otherwise.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// findInTenant loads a row of the caller's organization by id, answering
// 404 when it belongs to nobody or to another tenant.
func findInTenant(c *gin.Context, dest interface{}, id uint, what string) bool {
	if err := tenantDB(c).First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
			return false
		}
		respondDBError(c, err, "Failed to load "+what)
		return false
	}
	return true
}

func respondDBError(c *gin.Context, err error, msg string) {
	slog.Error(msg, "error", err, "org_id", currentOrgID(c), "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// parseOptionalDate returns nil for an empty string.
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateRangeQuery reads the from/to query parameters. to is inclusive, so the
// returned end is the following midnight.
func dateRangeQuery(c *gin.Context) (from, to *time.Time, ok bool) {
	var err error
	if from, err = parseOptionalDate(c.Query("from")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
		return nil, nil, false
	}
	if to, err = parseOptionalDate(c.Query("to")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, expected YYYY-MM-DD"})
		return nil, nil, false
	}
	if to != nil {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return nil, nil, false
	}
	return from, to, true
}

func uintQuery(c *gin.Context, key string) (uint, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key})
		return 0, false
	}
	return uint(id), true
}

// inputError marks a failure caused by the request content rather than the server.
type inputError struct{ msg string }

func (e inputError) Error() string { return e.msg }

func badInput(msg string) error { return inputError{msg: msg} }

var (
	errInvalidTransition = errors.New("invoice status does not allow this action")
	errNotEditable       = errors.New("only draft or sent invoices can be changed")
	errLinkedTransaction = errors.New("transaction is linked to an invoice payment or goal contribution and cannot be changed directly")
	errGoalNotActive     = errors.New("goal is not active")
)

// respondError maps domain and database errors to HTTP statuses.
func respondError(c *gin.Context, err error, msg string) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, gin.H{"error": ie.msg})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, finance.ErrOutOfRange), errors.Is(err, finance.ErrFormula):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, errInvalidTransition), errors.Is(err, errNotEditable),
		errors.Is(err, errLinkedTransaction), errors.Is(err, errGoalNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": "Duplicate record"})
	default:
		respondDBError(c, err, msg)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		finance.ErrNoItems, finance.ErrBadQuantity, finance.ErrBadUnitPrice, finance.ErrBadDiscount,
		finance.ErrBadTaxRate, finance.ErrBadShippingFee, finance.ErrEmptyDescription,
		finance.ErrBadMeasurement, finance.ErrUnknownPeriod,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
