package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/phonecase-tools/lister/internal/providers"
)

// Ollama is a provider for a local Ollama server
type Ollama struct {
	URL        string
	HTTPClient *http.Client
}

// New returns a new Ollama provider. An empty url falls back to OLLAMA_URL, then localhost.
func New(url string) *Ollama {
	if url == "" {
		url = os.Getenv("OLLAMA_URL")
	}
	if url == "" {
		url = "http://localhost:11434"
	}
	return &Ollama{
		URL:        strings.TrimSuffix(url, "/"),
		HTTPClient: &http.Client{},
	}
}

// DescribeImage sends the prompt with the base64 image to /api/generate
func (o *Ollama) DescribeImage(ctx context.Context, config providers.Config) (string, error) {
	body := map[string]interface{}{
		"model":  config.Model,
		"prompt": config.Prompt,
		"images": []string{config.Image.Base64()},
		"stream": false,
	}
	if config.Temperature > 0 {
		body["options"] = map[string]interface{}{"temperature": config.Temperature}
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.URL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return strings.TrimSpace(response.Response), nil
}
