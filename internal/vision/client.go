package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"voltfox-backend/config"
	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/parse"
)

// ErrUnavailable wraps every failure of the recognition backend.
var ErrUnavailable = errors.New("recognition service unavailable")

// DefaultPrompt asks the model for the JSON shape decodeRecognition expects.
const DefaultPrompt = `Identify the battery-powered device in this photo. ` +
	`Answer with a single JSON object with the keys "deviceType" (one of drone, camera, laptop, phone, tablet, ` +
	`smartwatch, headphones, speaker, e-bike, rc-car, other), "brand", "model", "chemistry" ` +
	`(one of LiPo, Li-ion, NiMH, Lead-Acid, or empty if unsure) and "confidence" (0 to 100).`

// Recognition is a best-effort guess about the device in a photo.
type Recognition struct {
	DeviceType model.DeviceType  `json:"deviceType"`
	Brand      string            `json:"brand,omitempty"`
	Model      string            `json:"model,omitempty"`
	Chemistry  battery.Chemistry `json:"chemistry,omitempty"`
	Confidence int               `json:"confidence"`
}

// Client calls an OpenAI-compatible chat completions endpoint with the
// image attached as a data URL.
type Client struct {
	cfg     config.VisionConfig
	api     *openai.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient creates a client. Calls are paced by the configured rate.
func NewClient(cfg config.VisionConfig, log *zap.Logger) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid proxy URL, vision client will not use a proxy",
				zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiConfig.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	return &Client{
		cfg:     cfg,
		api:     openai.NewClientWithConfig(apiConfig),
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Recognize sends the image to the model and decodes its answer.
func (c *Client) Recognize(ctx context.Context, image []byte, mimeType string) (Recognition, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Recognition{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	prompt := c.cfg.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image),
					Detail: openai.ImageURLDetailLow,
				}},
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.log.Warn("recognition request rejected",
				zap.Int("status", apiErr.HTTPStatusCode), zap.String("message", apiErr.Message))
		}
		return Recognition{}, fmt.Errorf("%w: chat completion failed: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Recognition{}, fmt.Errorf("%w: response has no choices", ErrUnavailable)
	}

	return decodeRecognition(resp.Choices[0].Message.Content)
}

// rawRecognition is the model's answer before normalisation.
type rawRecognition struct {
	DeviceType string  `json:"deviceType"`
	Brand      string  `json:"brand"`
	Model      string  `json:"model"`
	Chemistry  string  `json:"chemistry"`
	Confidence float64 `json:"confidence"`
}

// decodeRecognition normalises the model's JSON answer. Models sometimes wrap
// JSON in a markdown fence, which is stripped first.
func decodeRecognition(content string) (Recognition, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw rawRecognition
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return Recognition{}, fmt.Errorf("%w: model answer is not valid JSON: %v", ErrUnavailable, err)
	}

	deviceType, _ := parse.ParseDeviceType(raw.DeviceType)
	rec := Recognition{
		DeviceType: deviceType,
		Brand:      strings.TrimSpace(raw.Brand),
		Model:      strings.TrimSpace(raw.Model),
		Confidence: confidence(raw.Confidence),
	}
	if chem, err := parse.ParseChemistry(raw.Chemistry); err == nil {
		rec.Chemistry = chem
	}
	return rec, nil
}

// confidence rounds the model's score into 0..100. The float is clamped
// before conversion since out-of-range float to int conversions are
// implementation-defined.
func confidence(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(math.Round(v))
}
