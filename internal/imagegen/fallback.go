package imagegen

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
)

// fallbackGenerator retries a transient primary failure once on a secondary
// provider. A content-policy verdict from either provider is final.
type fallbackGenerator struct {
	primary  Generator
	fallback Generator
	log      *zap.SugaredLogger
}

func WithFallback(primary, fallback Generator, log *zap.SugaredLogger) Generator {
	return &fallbackGenerator{
		primary:  primary,
		fallback: fallback,
		log:      log.Named("imagegen"),
	}
}

func (f *fallbackGenerator) Name() string {
	return f.primary.Name() + "+" + f.fallback.Name()
}

func (f *fallbackGenerator) Generate(ctx context.Context, prompt string, count int, ownerPlayerId string) ([]*internal.GeneratedImage, error) {
	images, err := f.primary.Generate(ctx, prompt, count, ownerPlayerId)
	if err == nil {
		return images, nil
	}
	if errors.Is(err, ErrContentPolicy) {
		return nil, err
	}

	f.log.Warnw("primary provider failed, retrying on fallback",
		"primary", f.primary.Name(), "fallback", f.fallback.Name(), "error", err)
	return f.fallback.Generate(ctx, prompt, count, ownerPlayerId)
}
