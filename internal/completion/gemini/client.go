// Package gemini implements chat.Completer over the Gemini generateContent
// HTTP API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/chat"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second

	defaultTemperature = 0.7

	// Mirrors the product copy shown when the model returns nothing usable.
	emptyReplyFallback = "I apologize, but I couldn't generate a response at this time."
)

// Config describes the Gemini API endpoint and credentials.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient wires a Client from config, applying endpoint defaults.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends the system instruction, prior transcript, and new user turn
// and returns the model's reply text. Transport and status failures are
// returned as errors; a decodable but empty reply degrades to a fallback
// string so the conversation keeps moving.
func (client *Client) Complete(ctx context.Context, systemInstruction string, history []chat.Turn, message string) (string, error) {
	payload, err := json.Marshal(client.buildRequest(systemInstruction, history, message))
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", client.baseURL, client.model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", client.apiKey)

	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 2048))
		return "", fmt.Errorf("gemini returned status %d: %s", httpResponse.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	return replyText(decoded), nil
}

func (client *Client) buildRequest(systemInstruction string, history []chat.Turn, message string) generateRequest {
	request := generateRequest{}
	if strings.TrimSpace(systemInstruction) != "" {
		request.SystemInstruction = &generateContent{Parts: []generatePart{{Text: systemInstruction}}}
	}
	request.Contents = make([]generateContent, 0, len(history)+1)
	for _, turn := range history {
		request.Contents = append(request.Contents, generateContent{
			Role:  string(turn.Role),
			Parts: []generatePart{{Text: turn.Text}},
		})
	}
	request.Contents = append(request.Contents, generateContent{
		Role:  string(chat.RoleUser),
		Parts: []generatePart{{Text: message}},
	})
	request.GenerationConfig.Temperature = defaultTemperature
	return request
}

func replyText(decoded generateResponse) string {
	if len(decoded.Candidates) == 0 {
		return emptyReplyFallback
	}
	var builder strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return emptyReplyFallback
	}
	return text
}
