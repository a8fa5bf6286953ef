package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var invoiceExportHeaders = []string{
	"Number", "Customer", "Status", "Issue date", "Due date", "Currency",
	"Subtotal", "Discount", "Tax", "Shipping", "Total", "Paid at",
}

// exportInvoices loads the invoices matching the status/from/to query, oldest first.
func exportInvoices(c *gin.Context) ([]models.Invoice, bool) {
	status := c.Query("status")
	if status != "" && !validInvoiceStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown invoice status"})
		return nil, false
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return nil, false
	}

	q := tenantDB(c).Preload("Customer")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if from != nil {
		q = q.Where("issue_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("issue_date < ?", *to)
	}

	var invoices []models.Invoice
	if err := q.Order("issue_date asc, id asc").Find(&invoices).Error; err != nil {
		respondDBError(c, err, "Failed to fetch invoices for export")
		return nil, false
	}
	return invoices, true
}

func invoiceExportRow(inv models.Invoice) []string {
	var customer, paidAt string
	if inv.Customer != nil {
		customer = inv.Customer.Name
	}
	if inv.PaidAt != nil {
		paidAt = inv.PaidAt.Format(dateLayout)
	}
	return []string{
		inv.Number, customer, inv.Status,
		inv.IssueDate.Format(dateLayout), inv.DueDate.Format(dateLayout), inv.Currency,
		inv.Subtotal.StringFixed(2), inv.DiscountAmount.StringFixed(2), inv.TaxAmount.StringFixed(2),
		inv.ShippingFee.StringFixed(2), inv.Total.StringFixed(2), paidAt,
	}
}

// ExportInvoicesCSVHandler streams the invoice register as CSV.
func ExportInvoicesCSVHandler(c *gin.Context) {
	invoices, ok := exportInvoices(c)
	if !ok {
		return
	}

	b := &bytes.Buffer{}
	b.Write([]byte{0xEF, 0xBB, 0xBF}) // BOM so spreadsheet apps detect UTF-8

	w := csv.NewWriter(b)
	if err := w.Write(invoiceExportHeaders); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write CSV header"})
		return
	}
	for _, inv := range invoices {
		if err := w.Write(invoiceExportRow(inv)); err != nil {
			slog.Warn("Failed to write invoice to CSV", "invoice_id", inv.ID, "error", err)
			continue
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV data"})
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+exportFileName("invoices", "csv"))
	c.Data(http.StatusOK, "text/csv", b.Bytes())
}

// ExportInvoicesXLSXHandler streams the invoice register as an Excel workbook.
func ExportInvoicesXLSXHandler(c *gin.Context) {
	invoices, ok := exportInvoices(c)
	if !ok {
		return
	}

	rows := make([][]interface{}, 0, len(invoices))
	for _, inv := range invoices {
		row := make([]interface{}, 0, len(invoiceExportHeaders))
		for i, v := range invoiceExportRow(inv) {
			// money columns go in as numbers so the sheet can sum them
			if i >= 6 && i <= 10 {
				f, _ := strconv.ParseFloat(v, 64)
				row = append(row, f)
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	writeXLSX(c, "Invoices", invoiceExportHeaders, rows, exportFileName("invoices", "xlsx"))
}

// writeXLSX renders one sheet with a header row and sends it as an attachment.
func writeXLSX(c *gin.Context, sheetName string, headers []string, rows [][]interface{}, fileName string) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create sheet"})
		return
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		slog.Error("Failed to write Excel file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}

func exportFileName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), ext)
}
