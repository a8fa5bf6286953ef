package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	// GeminiClient reads invoice documents. Nil disables recognition.
	GeminiClient *genai.GenerativeModel
	geminiConn   *genai.Client
)

// InitGoogleServices connects the Gemini model that answers in JSON.
func InitGoogleServices(ctx context.Context, apiKey, model string) error {
	if apiKey == "" {
		return errors.New("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return fmt.Errorf("create Gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	// extraction, not prose
	m.SetTemperature(0)

	geminiConn, GeminiClient = client, m
	slog.Info("Gemini model ready", "model", model)
	return nil
}

// CloseGoogleServices drops the Gemini connection if one is open.
func CloseGoogleServices() {
	if geminiConn == nil {
		return
	}
	if err := geminiConn.Close(); err != nil {
		slog.Warn("Closing Gemini client failed", "error", err)
	}
	geminiConn, GeminiClient = nil, nil
}
