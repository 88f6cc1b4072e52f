package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// Ensure OpenAIImageProvider implements ImageProvider
var _ ImageProvider = (*OpenAIImageProvider)(nil)

// OpenAIImageProvider renders chart/visualization images via DALL-E using the
// official OpenAI Go SDK.
type OpenAIImageProvider struct {
	client  openai.Client
	model   openai.ImageModel
	timeout time.Duration
	log     *logger.Logger
}

// NewOpenAIImageProvider creates a new image generation provider.
func NewOpenAIImageProvider(apiKey string, model string, timeout time.Duration) (*OpenAIImageProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = openai.ImageModelDallE3
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIImageProvider{
		client:  client,
		model:   openai.ImageModel(model),
		timeout: timeout,
		log:     logger.Get().With("component", "openai_images", "model", model),
	}, nil
}

// Name returns the provider name.
func (p *OpenAIImageProvider) Name() string { return "openai_images" }

// GenerateImage renders a single 1024x1024 image and returns its hosted URL.
func (p *OpenAIImageProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "prompt cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	response, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:  prompt,
		Model:   p.model,
		Size:    openai.ImageGenerateParamsSize1024x1024,
		Quality: openai.ImageGenerateParamsQualityStandard,
		N:       openai.Int(1),
	})
	if err != nil {
		return "", errors.Wrap(err, "openai image generation failed")
	}

	if len(response.Data) == 0 || response.Data[0].URL == "" {
		return "", errors.Wrap(errors.ErrInternal, "no image data returned")
	}

	p.log.Debugw("Generated image", "prompt_length", len(prompt))

	return response.Data[0].URL, nil
}
