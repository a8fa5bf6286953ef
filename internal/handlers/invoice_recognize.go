package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flowfin/config"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
)

const maxRecognizeUpload = 10 << 20

const recognizePrompt = "You are an accounting assistant. Read the attached invoice or receipt and extract " +
	"the seller or buyer company name, its tax id, the document number, the issue date, the due date, " +
	"the currency, the line items and the grand total. Answer with JSON only, no commentary, using this shape:\n" +
	`{"customerName": "", "taxId": "", "number": "", "issueDate": "yyyy-mm-dd", "dueDate": "yyyy-mm-dd", ` +
	`"currency": "", "items": [{"description": "", "quantity": "1", "unitPrice": "0.00"}], "total": "0.00"}`

// RecognizedItem keeps amounts as text; the model does not always produce valid numbers.
type RecognizedItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

// RecognizeResponse is the draft extracted from an uploaded document.
type RecognizeResponse struct {
	CustomerName string           `json:"customerName"`
	TaxID        string           `json:"taxId"`
	Number       string           `json:"number"`
	IssueDate    string           `json:"issueDate"`
	DueDate      string           `json:"dueDate"`
	Currency     string           `json:"currency"`
	Items        []RecognizedItem `json:"items"`
	Total        string           `json:"total"`
	CustomerID   *uint            `json:"customerId,omitempty"`
}

// RecognizeInvoiceHandler extracts invoice data from an uploaded file with Gemini.
// The result is a draft for the client to review; nothing is stored.
func RecognizeInvoiceHandler(c *gin.Context) {
	if config.GeminiClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document recognition is not configured"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return
	}
	defer file.Close()
	if header.Size > maxRecognizeUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file data"})
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 45*time.Second)
	defer cancel()

	resp, err := config.GeminiClient.GenerateContent(ctx,
		genai.Text(recognizePrompt),
		genai.Blob{MIMEType: mimeType, Data: data},
	)
	if err != nil {
		slog.Error("Gemini recognition failed", "error", err, "org_id", currentOrgID(c))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recognition service error"})
		return
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recognition returned no result"})
		return
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recognition returned an unexpected payload"})
		return
	}

	var out RecognizeResponse
	cleanJSON := strings.Trim(string(text), "`json \n")
	if err := json.Unmarshal([]byte(cleanJSON), &out); err != nil {
		slog.Warn("Gemini returned malformed JSON", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recognition returned malformed data"})
		return
	}

	if name := strings.TrimSpace(out.CustomerName); name != "" || out.TaxID != "" {
		var customer models.Customer
		q := tenantDB(c)
		if out.TaxID != "" {
			q = q.Where("tax_id = ?", out.TaxID)
		} else {
			q = q.Where("LOWER(name) = ?", strings.ToLower(name))
		}
		if err := q.First(&customer).Error; err == nil {
			out.CustomerID = &customer.ID
		}
	}

	c.JSON(http.StatusOK, out)
}
