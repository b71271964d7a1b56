package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "text-embedding-3-small"

	// openaiBatchSize balances requests-per-minute against tokens-per-minute
	// rate limits. The API accepts up to 2048 inputs per request.
	openaiBatchSize = 500
)

// OpenAI embeds text through the OpenAI embeddings API. Requests are batched
// and retried with exponential backoff on rate limit errors.
type OpenAI struct {
	client openai.Client
	model  string
	dims   int
}

// NewOpenAI creates the OpenAI backend. OPENAI_API_KEY must be set in the
// environment; the SDK reads it directly.
func NewOpenAI(model string) (*OpenAI, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(),
		model:  model,
		dims:   modelDimensions(model, 1536),
	}, nil
}

// EmbedBatch embeds texts in batches of openaiBatchSize.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += openaiBatchSize {
		end := min(i+openaiBatchSize, len(texts))
		vectors, err := o.embedWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Embed embeds a single text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions returns the model's vector size.
func (o *OpenAI) Dimensions() int { return o.dims }

// ModelName returns the configured model.
func (o *OpenAI) ModelName() string { return o.model }

// embedWithRetry runs one batch with exponential backoff on HTTP 429.
// Other API errors are permanent and fail immediately.
func (o *OpenAI) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(o.model),
		})
		if err != nil {
			if isRateLimit(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vectors, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows the API's float64 vectors for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
