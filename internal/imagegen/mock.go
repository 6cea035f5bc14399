package imagegen

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/utils"
)

// Mock produces deterministic placeholder images keyed on the prompt text,
// with simulated provider latency. Used in development and tests.
type Mock struct {
	MinLatency time.Duration
	MaxLatency time.Duration
}

func NewMock() *Mock {
	return &Mock{
		MinLatency: 500 * time.Millisecond,
		MaxLatency: 1500 * time.Millisecond,
	}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Generate(ctx context.Context, prompt string, count int, ownerPlayerId string) ([]*internal.GeneratedImage, error) {
	if m.MaxLatency > 0 {
		delay := m.MinLatency
		if m.MaxLatency > m.MinLatency {
			delay += rand.N(m.MaxLatency - m.MinLatency)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
		}
	}

	seed := promptSeed(prompt)
	images := make([]*internal.GeneratedImage, 0, count)
	for i := 0; i < count; i++ {
		images = append(images, &internal.GeneratedImage{
			Id:              utils.NewID(),
			PlayerId:        ownerPlayerId,
			ImageUrl:        fmt.Sprintf("https://picsum.photos/seed/%s-%d/512/512", seed, i),
			ThumbnailUrl:    fmt.Sprintf("https://picsum.photos/seed/%s-%d/128/128", seed, i),
			Provider:        m.Name(),
			ProviderImageId: fmt.Sprintf("%s-%d", seed, i),
			Status:          internal.ImageComplete,
			GeneratedAt:     time.Now().UTC(),
			Metadata: internal.ImageMetadata{
				Model:          "mock-diffusion-v1",
				GenerationTime: m.MinLatency.Milliseconds(),
			},
		})
	}
	return images, nil
}

func promptSeed(prompt string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return fmt.Sprintf("%08x", h.Sum32())
}
