package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/quillbase/ingesta/internal/core"
)

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)

const (
	embedTimeout     = 30 * time.Second
	embedMaxAttempts = 4
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dim       int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dim int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, dim: dim}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Dimension reports the vector dimensionality this deployment expects.
// Every response is validated against it; a mismatch fails that chunk hard.
func (g *GeminiEmbedder) Dimension() int { return g.dim }

// EmbedText embeds one chunk's text. Transient provider failures (rate limit,
// 5xx, timeout) are retried with exponential backoff up to embedMaxAttempts;
// permanent failures return immediately so the caller can skip just this chunk.
func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	em := g.client.EmbeddingModel(g.modelName)

	var vec []float32
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, embedTimeout)
		defer cancel()

		resp, err := em.EmbedContent(callCtx, genai.Text(text))
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return backoff.Permanent(errors.New("empty embedding in response"))
		}
		if g.dim > 0 && len(resp.Embedding.Values) != g.dim {
			return backoff.Permanent(fmt.Errorf("dimension mismatch: got %d want %d", len(resp.Embedding.Values), g.dim))
		}
		vec = resp.Embedding.Values
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), embedMaxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return vec, nil
}

// isTransient reports whether an embedding call is worth retrying.
func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// Timeouts and broken connections come through as deadline errors.
	return errors.Is(err, context.DeadlineExceeded)
}
