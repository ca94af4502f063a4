package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatapp/realtime-chat/internal/models"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

const (
	geminiBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	geminiMaxOutputTokens = 500
	geminiTemperature     = 0.7
	geminiTimeout         = 30 * time.Second
)

// Assistant produces a reply to prompt given earlier turns of the conversation.
type Assistant interface {
	Reply(ctx context.Context, history []models.AIMessage, prompt string) (string, error)
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiClient returns nil when no API key is configured.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if apiKey == "" {
		return nil
	}
	return &GeminiClient{apiKey: apiKey, model: model, baseURL: geminiBaseURL}
}

func buildGeminiRequest(history []models.AIMessage, prompt string) geminiRequest {
	var req geminiRequest
	for _, m := range history {
		role := "model"
		if m.Role == models.AIRoleUser {
			role = "user"
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: prompt}}})
	req.GenerationConfig.MaxOutputTokens = geminiMaxOutputTokens
	req.GenerationConfig.Temperature = geminiTemperature
	return req
}

func (g *GeminiClient) Reply(ctx context.Context, history []models.AIMessage, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	timeout := geminiTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	agent := fiber.Post(url)
	agent.JSONEncoder(json.Marshal)
	agent.Set("x-goog-api-key", g.apiKey)
	agent.JSON(buildGeminiRequest(history, prompt))
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("gemini request: %w", errors.Join(errs...))
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode gemini response (status %d): %w", code, err)
	}
	if code != fiber.StatusOK {
		msg := "unexpected status"
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", fmt.Errorf("gemini: status %d: %s", code, msg)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "No response", nil
	}
	return sb.String(), nil
}
