package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/promptguessr/backend/internal"
	"github.com/promptguessr/backend/internal/utils"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/images/generations"
	openAIModel    = "dall-e-2"
	openAISize     = "512x512"
)

// OpenAI generates images through the OpenAI images API.
type OpenAI struct {
	apiKey string
	client *http.Client
	log    *zap.SugaredLogger
}

func NewOpenAI(apiKey string, log *zap.SugaredLogger) *OpenAI {
	return &OpenAI{
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		log:    log.Named("openai"),
	}
}

func (o *OpenAI) Name() string { return "openai" }

type openAIRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, count int, ownerPlayerId string) ([]*internal.GeneratedImage, error) {
	started := time.Now()

	body, err := json.Marshal(openAIRequest{
		Model:  openAIModel,
		Prompt: prompt,
		N:      count,
		Size:   openAISize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response (status %d): %v", ErrGeneration, resp.StatusCode, err)
	}

	if out.Error != nil {
		if isOpenAIPolicyError(out.Error.Code, out.Error.Type, out.Error.Message) {
			o.log.Infow("content policy rejection", "player", ownerPlayerId)
			return nil, fmt.Errorf("%w: %s", ErrContentPolicy, out.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s (status %d)", ErrGeneration, out.Error.Message, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrGeneration, resp.StatusCode)
	}

	elapsed := time.Since(started).Milliseconds()
	images := make([]*internal.GeneratedImage, 0, len(out.Data))
	for i, d := range out.Data {
		images = append(images, &internal.GeneratedImage{
			Id:              utils.NewID(),
			PlayerId:        ownerPlayerId,
			ImageUrl:        d.URL,
			ThumbnailUrl:    d.URL,
			Provider:        o.Name(),
			ProviderImageId: fmt.Sprintf("openai-%d-%d", started.UnixMilli(), i),
			Status:          internal.ImageComplete,
			GeneratedAt:     time.Now().UTC(),
			Metadata: internal.ImageMetadata{
				Model:          openAIModel,
				RevisedPrompt:  d.RevisedPrompt,
				GenerationTime: elapsed,
			},
		})
	}
	return images, nil
}

func isOpenAIPolicyError(code, errType, message string) bool {
	if code == "content_policy_violation" {
		return true
	}
	return errType == "invalid_request_error" &&
		strings.Contains(strings.ToLower(message), "content policy")
}
