package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/utils"
)

const (
	hfModel    = "stabilityai/stable-diffusion-2-1"
	hfEndpoint = "https://api-inference.huggingface.co/models/" + hfModel
)

// HuggingFace generates images through the hosted inference API. The API
// returns raw image bytes, which are carried as data URLs; clients treat
// them like any other image URL.
type HuggingFace struct {
	apiKey string
	client *http.Client
	log    *zap.SugaredLogger
}

func NewHuggingFace(apiKey string, log *zap.SugaredLogger) *HuggingFace {
	return &HuggingFace{
		apiKey: apiKey,
		client: &http.Client{Timeout: 120 * time.Second},
		log:    log.Named("huggingface"),
	}
}

func (h *HuggingFace) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfError struct {
	Error string `json:"error"`
}

func (h *HuggingFace) Generate(ctx context.Context, prompt string, count int, ownerPlayerId string) ([]*internal.GeneratedImage, error) {
	started := time.Now()

	// The inference API returns a single image per call.
	images := make([]*internal.GeneratedImage, 0, count)
	for i := 0; i < count; i++ {
		data, err := h.generateOne(ctx, prompt)
		if err != nil {
			return nil, err
		}
		url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
		images = append(images, &internal.GeneratedImage{
			Id:              utils.NewID(),
			PlayerId:        ownerPlayerId,
			ImageUrl:        url,
			ThumbnailUrl:    url,
			Provider:        h.Name(),
			ProviderImageId: fmt.Sprintf("hf-%d-%d", started.UnixMilli(), i),
			Status:          internal.ImageComplete,
			GeneratedAt:     time.Now().UTC(),
			Metadata: internal.ImageMetadata{
				Model:          hfModel,
				GenerationTime: time.Since(started).Milliseconds(),
			},
		})
	}
	return images, nil
}

func (h *HuggingFace) generateOne(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(hfRequest{Inputs: prompt})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hfEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var hfErr hfError
		_ = json.Unmarshal(raw, &hfErr)
		if isHFPolicyError(hfErr.Error) {
			return nil, fmt.Errorf("%w: %s", ErrContentPolicy, hfErr.Error)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, hfErr.Error)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", ErrGeneration, err)
	}
	return data, nil
}

func isHFPolicyError(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "safety") || strings.Contains(m, "nsfw")
}
