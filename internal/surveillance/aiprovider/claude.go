package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

func init() {
	Register("claude", func(apiKey string) Provider {
		return &claudeProvider{
			apiKey: apiKey,
			client: &http.Client{Timeout: 30 * time.Second},
		}
	})
}

// claudeProvider implements the Anthropic-compatible shape: messages with
// typed content blocks, image as source:{type:base64,media_type,data},
// response as content:[{text}] + usage:{input_tokens,output_tokens}.
type claudeProvider struct {
	apiKey string
	client *http.Client
}

var _ Provider = (*claudeProvider)(nil)

func (p *claudeProvider) Name() string            { return "claude" }
func (p *claudeProvider) VideoMethod() VideoMethod { return VideoFrameExtraction }
func (p *claudeProvider) RetryPolicy() RetryPolicy { return DefaultRetryPolicy() }

var claudeRates = CostRates{InputPer1K: 0.003, OutputPer1K: 0.015, TokensPerImage: 100}

func (p *claudeProvider) CostRates() CostRates { return claudeRates }

func (p *claudeProvider) DescribeVideo(ctx context.Context, clipPath string, pctx PromptContext) (Result, error) {
	return Result{}, ErrNotSupported
}

func (p *claudeProvider) DescribeImage(ctx context.Context, jpegB64 string, pctx PromptContext) (Result, error) {
	return p.call(ctx, []string{jpegB64}, BuildSingleImagePrompt(pctx))
}

func (p *claudeProvider) DescribeImages(ctx context.Context, jpegsB64 []string, pctx PromptContext) (Result, error) {
	return p.call(ctx, jpegsB64, BuildMultiFramePrompt(pctx))
}

type claudeBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *claudeProvider) call(ctx context.Context, imagesB64 []string, prompt string) (Result, error) {
	blocks := []claudeBlock{{Type: "text", Text: prompt}}
	for _, img := range imagesB64 {
		blocks = append(blocks, claudeBlock{
			Type:   "image",
			Source: &claudeSource{Type: "base64", MediaType: "image/jpeg", Data: img},
		})
	}

	body, err := json.Marshal(claudeRequest{
		Model:     "claude-3-5-sonnet-20241022",
		MaxTokens: 1024,
		Messages:  []claudeMessage{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("claude returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed claudeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Content) == 0 {
		return Result{}, fmt.Errorf("claude: malformed response")
	}

	out := ParseResponse(parsed.Content[0].Text)
	return Result{
		Description:    out.Description,
		SelfConfidence: out.Confidence,
		TokensIn:       parsed.Usage.InputTokens,
		TokensOut:      parsed.Usage.OutputTokens,
		Success:        out.Description != "",
	}, nil
}
