package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini embeddings client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int // 0 uses the model's native size
	Timeout    time.Duration
}

// GeminiEmbedder calls the Gemini embedContent API.
// Unlike OpenAI it distinguishes document and query embeddings.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dim        int
	dimensions int
}

// NewGeminiEmbedder creates a Gemini embedder
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return nil, errors.New("Gemini API key not set")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	dim := 3072 // native size of gemini-embedding-001
	if cfg.Dimensions > 0 {
		dim = cfg.Dimensions
	}

	return &GeminiEmbedder{
		client:     client,
		model:      model,
		dim:        dim,
		dimensions: cfg.Dimensions,
	}, nil
}

// EmbedBatch embeds all texts in a single embedContent request.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	reqCfg := &genai.EmbedContentConfig{TaskType: string(task)}
	if e.dimensions > 0 {
		d := int32(e.dimensions)
		reqCfg.OutputDimensionality = &d
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, reqCfg)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 {
		return nil, ErrEmptyResponse
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrBatchMismatch, len(res.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyResponse, i)
		}
		v := make([]float32, len(emb.Values))
		copy(v, emb.Values)

		// Truncated Gemini vectors are not unit length
		l2normalize(v)
		embeddings[i] = v
	}

	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *GeminiEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *GeminiEmbedder) ModelInfo() string {
	return "gemini-" + e.model
}
