package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"keto-planner/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroqClient(t *testing.T, handler http.HandlerFunc) *groqClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewGroqClient(&config.Config{GroqAPIKey: "test-key", GroqModel: "test-model"}).(*groqClient)
	c.endpoint = srv.URL
	return c
}

func TestGroqClient_GenerateContent(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var got map[string]any
		c := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"choices": [{"message": {"content": "{\"days\":[]}"}}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
			}`))
		})

		resp, err := c.GenerateContent(context.Background(), ContentRequest{
			Prompt:           "hello",
			ResponseMIMEType: "application/json",
			MaxOutputTokens:  1200,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"days":[]}`, resp.Content)
		assert.Equal(t, 15, resp.Usage.TotalTokens)
		assert.Equal(t, "test-model", resp.Usage.Model)

		assert.Equal(t, "test-model", got["model"])
		assert.Equal(t, float64(1200), got["max_tokens"])
		assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	})

	t.Run("NoChoices", func(t *testing.T) {
		c := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": []}`))
		})

		_, err := c.GenerateContent(context.Background(), ContentRequest{Prompt: "hello"})
		require.Error(t, err)
		assert.Equal(t, KindOther, KindOf(err))
	})

	statusCases := []struct {
		name   string
		status int
		want   ErrorKind
	}{
		{"RateLimited", http.StatusTooManyRequests, KindRateLimited},
		{"Unavailable", http.StatusServiceUnavailable, KindOverloaded},
		{"Overloaded529", 529, KindOverloaded},
		{"BadRequest", http.StatusBadRequest, KindOther},
	}
	for _, tc := range statusCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestGroqClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			})

			_, err := c.GenerateContent(context.Background(), ContentRequest{Prompt: "hello"})
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.status, pe.StatusCode)
			assert.Equal(t, "groq", pe.Provider)
		})
	}
}
