package handlers

import (
	"errors"
	"net/http"
	"strings"

	"flowfin/config"
	"flowfin/internal/finance"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DeliveryZoneInput struct {
	Name             string              `json:"name" binding:"required"`
	BaseFee          decimal.Decimal     `json:"baseFee"`
	PerKmRate        decimal.Decimal     `json:"perKmRate"`
	PerKgRate        decimal.Decimal     `json:"perKgRate"`
	MinFee           decimal.Decimal     `json:"minFee"`
	MaxDistanceKm    decimal.NullDecimal `json:"maxDistanceKm"`
	FreeOverSubtotal decimal.NullDecimal `json:"freeOverSubtotal"`
	Formula          string              `json:"formula"`
	Active           *bool               `json:"active"`
}

type QuoteInput struct {
	ZoneID     uint            `json:"zoneId" binding:"required"`
	DistanceKm decimal.Decimal `json:"distanceKm"`
	WeightKg   decimal.Decimal `json:"weightKg"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func (in DeliveryZoneInput) apply(z *models.DeliveryZone) error {
	z.Name = strings.TrimSpace(in.Name)
	if z.Name == "" {
		return badInput("Zone name is required")
	}
	for _, v := range []decimal.Decimal{in.BaseFee, in.PerKmRate, in.PerKgRate, in.MinFee} {
		if v.IsNegative() {
			return badInput("Fees and rates must not be negative")
		}
	}
	if in.MaxDistanceKm.Valid && !in.MaxDistanceKm.Decimal.IsPositive() {
		return badInput("maxDistanceKm must be greater than zero")
	}
	if in.FreeOverSubtotal.Valid && in.FreeOverSubtotal.Decimal.IsNegative() {
		return badInput("freeOverSubtotal must not be negative")
	}
	formula := strings.TrimSpace(in.Formula)
	if formula != "" {
		if err := finance.ValidateFormula(formula); err != nil {
			return badInput(err.Error())
		}
	}

	z.BaseFee = finance.Round2(in.BaseFee)
	z.PerKmRate = in.PerKmRate.Round(4)
	z.PerKgRate = in.PerKgRate.Round(4)
	z.MinFee = finance.Round2(in.MinFee)
	z.MaxDistanceKm = in.MaxDistanceKm
	z.FreeOverSubtotal = in.FreeOverSubtotal
	z.Formula = formula
	if in.Active != nil {
		z.Active = *in.Active
	}
	return nil
}

// ListDeliveryZonesHandler lists the organization's delivery zones.
func ListDeliveryZonesHandler(c *gin.Context) {
	q := tenantDB(c).Order("name asc")
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}
	zones := make([]models.DeliveryZone, 0)
	if err := q.Find(&zones).Error; err != nil {
		respondDBError(c, err, "Could not fetch delivery zones")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": zones})
}

// CreateDeliveryZoneHandler adds a zone; a formula must parse and evaluate before it is stored.
func CreateDeliveryZoneHandler(c *gin.Context) {
	var input DeliveryZoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zone := models.DeliveryZone{OrganizationID: currentOrgID(c), Active: true}
	if err := input.apply(&zone); err != nil {
		respondError(c, err, "Invalid delivery zone")
		return
	}
	if err := config.DB.Create(&zone).Error; err != nil {
		respondDBError(c, err, "Failed to create delivery zone")
		return
	}
	c.JSON(http.StatusCreated, zone)
}

// GetDeliveryZoneHandler returns one zone.
func GetDeliveryZoneHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var zone models.DeliveryZone
	if !findInTenant(c, &zone, id, "Delivery zone") {
		return
	}
	c.JSON(http.StatusOK, zone)
}

// UpdateDeliveryZoneHandler replaces a zone's pricing.
func UpdateDeliveryZoneHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input DeliveryZoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var zone models.DeliveryZone
	if !findInTenant(c, &zone, id, "Delivery zone") {
		return
	}
	if err := input.apply(&zone); err != nil {
		respondError(c, err, "Invalid delivery zone")
		return
	}
	if err := config.DB.Save(&zone).Error; err != nil {
		respondDBError(c, err, "Failed to update delivery zone")
		return
	}
	c.JSON(http.StatusOK, zone)
}

// DeleteDeliveryZoneHandler removes a zone. Invoices keep their stored shipping fee.
func DeleteDeliveryZoneHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var zone models.DeliveryZone
	if !findInTenant(c, &zone, id, "Delivery zone") {
		return
	}
	if err := config.DB.Delete(&zone).Error; err != nil {
		respondDBError(c, err, "Failed to delete delivery zone")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery zone deleted"})
}

// QuoteDeliveryHandler prices a shipment against an active zone.
func QuoteDeliveryHandler(c *gin.Context) {
	var input QuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var zone models.DeliveryZone
	if err := tenantDB(c).Where("active = ?", true).First(&zone, input.ZoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery zone not found"})
			return
		}
		respondDBError(c, err, "Failed to load delivery zone")
		return
	}

	quote, err := finance.QuoteDelivery(zoneRate(zone), finance.QuoteRequest{
		DistanceKm: input.DistanceKm,
		WeightKg:   input.WeightKg,
		Subtotal:   input.Subtotal,
	})
	if err != nil {
		respondError(c, err, "Failed to price delivery")
		return
	}
	c.JSON(http.StatusOK, gin.H{"zoneId": zone.ID, "zone": zone.Name, "quote": quote})
}
