package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{"The quick brown fox", "the QUICK brown fox!", "entirely unrelated words"}, TaskDocument)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	for _, v := range vecs {
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	// Case and punctuation do not matter
	assert.Equal(t, vecs[0], vecs[1])
	assert.Equal(t, 64, e.Dimension())
	assert.Equal(t, "hash-64", e.ModelInfo())
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	v := NewHashEmbedder(8).Embed("")
	assert.Equal(t, make([]float32, 8), v)
}

func TestNew(t *testing.T) {
	e, err := New(context.Background(), Config{Provider: "hash", Dimensions: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, e.Dimension())

	e, err = New(context.Background(), Config{Provider: "hash", Retry: fastRetry(1)})
	require.NoError(t, err)
	assert.IsType(t, &RetryEmbedder{}, e)

	_, err = New(context.Background(), Config{Provider: "nope"})
	require.Error(t, err)
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(context.Background(), Config{Provider: "openai"})
	require.Error(t, err)
}

func TestNew_GeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New(context.Background(), Config{Provider: "gemini"})
	require.Error(t, err)
}

func TestEmbedOne_Mismatch(t *testing.T) {
	_, err := EmbedOne(context.Background(), &shortEmbedder{fakeEmbedder: fakeEmbedder{dim: 4}}, "x", TaskQuery)
	require.ErrorIs(t, err, ErrBatchMismatch)
}

// openAIServer answers embedding requests with vectors listed in reverse order.
func openAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{
				Object:    "embedding",
				Embedding: []float32{float32(i + 1), 0, 0},
				Index:     i,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIEmbedder_ReordersByIndex(t *testing.T) {
	srv := openAIServer(t)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1", Dimensions: 3})
	require.NoError(t, err)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"}, TaskDocument)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Equal(t, []float32{1, 0, 0}, v)
	}
	assert.Equal(t, 3, e.Dimension())
	assert.Equal(t, "openai-text-embedding-3-small", e.ModelInfo())
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"a"}, TaskDocument)
	require.Error(t, err)
}

func TestOpenAIEmbedder_RejectsEmptyText(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"ok", ""}, TaskDocument)
	require.Error(t, err)
}
