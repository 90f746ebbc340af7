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
	Register("openai", func(apiKey string) Provider {
		return &chatProvider{
			name:    "openai",
			baseURL: "https://api.openai.com/v1/chat/completions",
			model:   "gpt-4o-mini",
			apiKey:  apiKey,
			client:  &http.Client{Timeout: 30 * time.Second},
			rates:   CostRates{InputPer1K: 0.00015, OutputPer1K: 0.0006, TokensPerImage: 100},
			retry:   DefaultRetryPolicy(),
		}
	})
}

// chatProvider implements the OpenAI-compatible chat shape (messages with
// text + image_url data-URIs; choices[0].message.content + usage tokens),
// shared by OpenAI and Grok since spec.md §6 calls Grok "identical to the
// above with a different base URL".
type chatProvider struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	rates   CostRates
	retry   RetryPolicy
}

func (p *chatProvider) Name() string             { return p.name }
func (p *chatProvider) VideoMethod() VideoMethod  { return VideoFrameExtraction }
func (p *chatProvider) RetryPolicy() RetryPolicy  { return p.retry }
func (p *chatProvider) CostRates() CostRates      { return p.rates }

func (p *chatProvider) DescribeVideo(ctx context.Context, clipPath string, pctx PromptContext) (Result, error) {
	return Result{}, ErrNotSupported
}

func (p *chatProvider) DescribeImage(ctx context.Context, jpegB64 string, pctx PromptContext) (Result, error) {
	return p.call(ctx, []string{jpegB64}, BuildSingleImagePrompt(pctx))
}

func (p *chatProvider) DescribeImages(ctx context.Context, jpegsB64 []string, pctx PromptContext) (Result, error) {
	return p.call(ctx, jpegsB64, BuildMultiFramePrompt(pctx))
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *chatProvider) call(ctx context.Context, imagesB64 []string, prompt string) (Result, error) {
	content := []chatContent{{Type: "text", Text: prompt}}
	for _, img := range imagesB64 {
		content = append(content, chatContent{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: "data:image/jpeg;base64," + img},
		})
	}

	body, err := json.Marshal(chatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		return Result{}, fmt.Errorf("%s returned status %d: %s", p.name, resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("%s: malformed response", p.name)
	}

	out := ParseResponse(parsed.Choices[0].Message.Content)
	return Result{
		Description:    out.Description,
		SelfConfidence: out.Confidence,
		TokensIn:       parsed.Usage.PromptTokens,
		TokensOut:      parsed.Usage.CompletionTokens,
		Success:        out.Description != "",
	}, nil
}
