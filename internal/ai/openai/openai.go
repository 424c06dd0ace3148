package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/signalscope/signalscope/internal/ai"
)

// Client wraps the official OpenAI client for both the text and image
// capabilities.
type Client struct {
	apiKey     string
	model      string
	imageModel string
	timeout    time.Duration
	api        *openai.Client
}

func New(apiKey, baseURL, model, imageModel string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		imageModel: imageModel,
		timeout:    timeout,
		api:        openai.NewClientWithConfig(cfg),
	}
}

func (c *Client) Name() string    { return "openai" }
func (c *Client) Available() bool { return c.apiKey != "" }

func (c *Client) Complete(ctx context.Context, system, user string, opts ai.CompleteOpts) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", normalize(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Render(ctx context.Context, prompt string) (ai.Image, error) {
	if c.apiKey == "" {
		return ai.Image{}, errors.New("missing OPENAI_API_KEY")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return ai.Image{}, normalize(err)
	}
	if len(resp.Data) == 0 {
		return ai.Image{}, errors.New("no image data")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return ai.Image{}, fmt.Errorf("decode image: %w", err)
	}
	return ai.Image{Data: raw, Format: "png"}, nil
}

// normalize flattens the vendor's structured error body into one message.
func normalize(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err
}
