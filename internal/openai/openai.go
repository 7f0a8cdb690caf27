package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/phonecase-tools/lister/internal/providers"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	// ArkBaseURL is the Volcengine Ark endpoint, which speaks the chat-completions protocol.
	ArkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
)

// OpenAI is a provider for OpenAI-compatible chat completion APIs
type OpenAI struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a new OpenAI-compatible provider
func New(baseURL, apiKey string) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAI{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{},
	}
}

// DescribeImage sends the image and prompt as one user message and returns the reply text
func (o *OpenAI) DescribeImage(ctx context.Context, config providers.Config) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("API key not set")
	}

	body := map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": config.Image.DataURI(),
						},
					},
					{
						"type": "text",
						"text": config.Prompt,
					},
				},
			},
		},
	}
	if config.Temperature > 0 {
		body["temperature"] = config.Temperature
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s", o.BaseURL)
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
