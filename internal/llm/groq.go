package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"keto-planner/internal/config"
	"keto-planner/internal/shared"
)

const groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// groqClient is a client for the Groq API.
type groqClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) Client {
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &groqClient{
		apiKey:   cfg.GroqAPIKey,
		model:    cfg.GroqModel,
		endpoint: groqAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type groqResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
// Groq cannot enforce a schema; JSON mode is requested when a JSON MIME type is asked for.
func (c *groqClient) GenerateContent(ctx context.Context, req ContentRequest) (ContentResponse, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": req.Prompt,
			},
		},
		"temperature": 0.2,
	}
	if req.ResponseMIMEType == "application/json" {
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}
	if req.MaxOutputTokens > 0 {
		reqBody["max_tokens"] = req.MaxOutputTokens
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ContentResponse{}, &ProviderError{Kind: KindOther, Provider: "groq", Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, &ProviderError{
			Kind:       kindForHTTPStatus(resp.StatusCode),
			Provider:   "groq",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("groq api error: %s", string(bodyBytes)),
		}
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, &ProviderError{Kind: KindOther, Provider: "groq", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	usage := shared.TokenUsage{
		PromptTokens:     groqResp.Usage.PromptTokens,
		CompletionTokens: groqResp.Usage.CompletionTokens,
		TotalTokens:      groqResp.Usage.TotalTokens,
		Model:            c.model,
	}
	if len(groqResp.Choices) == 0 {
		return ContentResponse{Usage: usage}, &ProviderError{Kind: KindOther, Provider: "groq", Err: errors.New("no content generated")}
	}

	return ContentResponse{
		Content: groqResp.Choices[0].Message.Content,
		Usage:   usage,
	}, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (c *groqClient) Close() error {
	return nil
}
