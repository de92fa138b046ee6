package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"keto-planner/internal/config"
	"keto-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client is a TextGenerator that owns resources which must be released.
type Client interface {
	TextGenerator
	Closer
}

// geminiClient is a client for the Google Gemini API.
type geminiClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiClient{client: client, modelName: cfg.GeminiModel, temperature: 0.4}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
// A fresh model handle is built per call so concurrent requests never share settings.
func (c *geminiClient) GenerateContent(ctx context.Context, req ContentRequest) (ContentResponse, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.ResponseMIMEType != "" {
		model.ResponseMIMEType = req.ResponseMIMEType
	}
	if req.Schema != nil {
		schema, err := toGenaiSchema(req.Schema)
		if err != nil {
			return ContentResponse{}, &ProviderError{Kind: KindOther, Provider: "gemini", Err: err}
		}
		model.ResponseSchema = schema
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return ContentResponse{}, classifyGeminiError(err)
	}

	out := ContentResponse{Usage: shared.TokenUsage{Model: c.modelName}}
	if resp.UsageMetadata != nil {
		out.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return out, &ProviderError{Kind: KindOther, Provider: "gemini", Err: errors.New("no content generated")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.Blob:
			if strings.HasPrefix(p.MIMEType, "application/json") && json.Valid(p.Data) {
				out.Structured = json.RawMessage(p.Data)
			}
		}
	}
	out.Content = text.String()
	return out, nil
}

// Close closes the underlying Gemini client.
func (c *geminiClient) Close() error {
	return c.client.Close()
}

func classifyGeminiError(err error) error {
	pe := &ProviderError{Kind: KindOther, Provider: "gemini", Err: err}

	var aerr *apierror.APIError
	var gerr *googleapi.Error
	switch {
	case errors.As(err, &aerr) && aerr.HTTPCode() > 0:
		pe.StatusCode = aerr.HTTPCode()
		pe.Kind = kindForHTTPStatus(pe.StatusCode)
	case errors.As(err, &aerr) && aerr.GRPCStatus() != nil:
		pe.Kind = kindForGRPCCode(aerr.GRPCStatus().Code())
	case errors.As(err, &gerr):
		pe.StatusCode = gerr.Code
		pe.Kind = kindForHTTPStatus(gerr.Code)
	default:
		if st, ok := status.FromError(err); ok {
			pe.Kind = kindForGRPCCode(st.Code())
		}
	}
	return pe
}

func kindForGRPCCode(code codes.Code) ErrorKind {
	switch code {
	case codes.ResourceExhausted:
		return KindRateLimited
	case codes.Unavailable:
		return KindOverloaded
	default:
		return KindOther
	}
}

// toGenaiSchema converts a JSON-schema style map into the SDK schema type.
func toGenaiSchema(m map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}
	typ, _ := m["type"].(string)
	switch typ {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("unsupported schema type %q", typ)
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if n, ok := m["nullable"].(bool); ok {
		s.Nullable = n
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q: expected object schema", name)
			}
			cs, err := toGenaiSchema(child)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			s.Properties[name] = cs
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		is, err := toGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = is
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s, nil
}
