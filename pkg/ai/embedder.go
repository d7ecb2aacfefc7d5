package ai

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedder implements Embedder over an OpenAI-compatible embeddings
// endpoint. Embedding calls do not go through the request limiter; the
// provider budgets them separately from chat completions.
type OpenAIEmbedder struct {
	embedder *embeddings.EmbedderImpl
	model    string
	logger   ectologger.Logger
}

type EmbedderOptions struct {
	BaseURL string
	APIKey  string
	Model   string
}

func NewOpenAIEmbedder(opts EmbedderOptions, logger ectologger.Logger) (*OpenAIEmbedder, error) {
	clientOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithEmbeddingModel(opts.Model),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		model:    opts.Model,
		logger:   logger,
	}, nil
}

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "ai.EmbedText")
	defer span.End()

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("embedding request failed")
		return nil, err
	}
	return vector, nil
}

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "ai.EmbedTexts")
	defer span.End()

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("batch embedding request failed")
		return nil, err
	}
	return vectors, nil
}
