package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/signalscope/signalscope/internal/ai"
)

type Client struct {
	apiKey  string
	baseURL string
	engine  string
	http    *http.Client
}

func New(apiKey, baseURL, engine string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.stability.ai"
	}
	if engine == "" {
		engine = "stable-diffusion-v1-6"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		engine:  engine,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string    { return "stability" }
func (c *Client) Available() bool { return c.apiKey != "" }

func (c *Client) Render(ctx context.Context, prompt string) (ai.Image, error) {
	if c.apiKey == "" {
		return ai.Image{}, errors.New("missing STABILITY_API_KEY")
	}
	payload := map[string]any{
		"text_prompts": []map[string]any{
			{"text": prompt},
		},
		"cfg_scale": 7,
		"height":    1024,
		"width":     1024,
		"samples":   1,
	}
	b, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", c.baseURL, c.engine)
	req, _ := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return ai.Image{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return ai.Image{}, fmt.Errorf("stability status %d: %s", resp.StatusCode, errorBody(resp.Body))
	}
	var out struct {
		Artifacts []struct {
			Base64 string `json:"base64"`
		} `json:"artifacts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ai.Image{}, err
	}
	if len(out.Artifacts) == 0 {
		return ai.Image{}, errors.New("no artifacts")
	}
	raw, err := base64.StdEncoding.DecodeString(out.Artifacts[0].Base64)
	if err != nil {
		return ai.Image{}, fmt.Errorf("decode image: %w", err)
	}
	return ai.Image{Data: raw, Format: "png"}, nil
}

func errorBody(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var out struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &out) == nil && out.Message != "" {
		return out.Message
	}
	return strings.TrimSpace(string(raw))
}
