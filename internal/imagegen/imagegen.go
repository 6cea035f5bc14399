package imagegen

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/config"
)

// Generator is the port every image backend implements. Generate returns up
// to count images, all in complete status, owned by ownerPlayerId.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, count int, ownerPlayerId string) ([]*internal.GeneratedImage, error)
}

var (
	// ErrContentPolicy marks a terminal verdict: the prompt is disallowed
	// and only a resubmission by its author can move things forward.
	ErrContentPolicy = errors.New("prompt rejected by content policy")

	// ErrGeneration covers transient failures: timeouts, rate limits,
	// transport errors.
	ErrGeneration = errors.New("image generation failed")
)

// FromConfig builds the configured provider, wrapped with the fallback
// chain when enabled. Content-policy verdicts are never retried on the
// fallback.
func FromConfig(cfg *config.Config, log *zap.SugaredLogger) (Generator, error) {
	primary, err := build(cfg.ImageProvider, cfg, log)
	if err != nil {
		return nil, err
	}
	if !cfg.EnableFallback || cfg.FallbackProvider == "" {
		return primary, nil
	}
	fallback, err := build(cfg.FallbackProvider, cfg, log)
	if err != nil {
		return nil, err
	}
	return WithFallback(primary, fallback, log), nil
}

func build(provider string, cfg *config.Config, log *zap.SugaredLogger) (Generator, error) {
	switch provider {
	case "mock":
		return NewMock(), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return NewOpenAI(cfg.OpenAIKey, log), nil
	case "huggingface":
		if cfg.HuggingFaceKey == "" {
			return nil, fmt.Errorf("huggingface provider requires HUGGINGFACE_API_KEY")
		}
		return NewHuggingFace(cfg.HuggingFaceKey, log), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", provider)
	}
}
