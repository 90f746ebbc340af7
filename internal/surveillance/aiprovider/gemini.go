package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const geminiUploadDeadline = 120 * time.Second

func init() {
	Register("gemini", func(apiKey string) Provider {
		return &geminiProvider{
			apiKey: apiKey,
			client: &http.Client{Timeout: 60 * time.Second},
		}
	})
}

// geminiProvider implements the Gemini-compatible shape: list of parts
// (text + inline bytes, or an uploaded file handle for native video).
// Usage tokens are often absent, so callers fall back to the estimation
// path (spec.md §6).
type geminiProvider struct {
	apiKey string
	client *http.Client
}

var _ Provider = (*geminiProvider)(nil)

var geminiRates = CostRates{InputPer1K: 0.00025, OutputPer1K: 0.001, TokensPerImage: 258}

func (p *geminiProvider) Name() string            { return "gemini" }
func (p *geminiProvider) VideoMethod() VideoMethod { return VideoNativeUpload }
func (p *geminiProvider) RetryPolicy() RetryPolicy { return DefaultRetryPolicy() }
func (p *geminiProvider) CostRates() CostRates     { return geminiRates }

func (p *geminiProvider) DescribeImage(ctx context.Context, jpegB64 string, pctx PromptContext) (Result, error) {
	return p.generate(ctx, []geminiPart{{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: jpegB64}}}, BuildSingleImagePrompt(pctx))
}

func (p *geminiProvider) DescribeImages(ctx context.Context, jpegsB64 []string, pctx PromptContext) (Result, error) {
	parts := make([]geminiPart, 0, len(jpegsB64))
	for _, img := range jpegsB64 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: img}})
	}
	return p.generate(ctx, parts, BuildMultiFramePrompt(pctx))
}

// DescribeVideo uploads the clip via the resumable upload endpoint, polls
// file.state until it leaves PROCESSING or the 120s deadline passes, then
// generates content referencing the uploaded file handle.
func (p *geminiProvider) DescribeVideo(ctx context.Context, clipPath string, pctx PromptContext) (Result, error) {
	uploadCtx, cancel := context.WithTimeout(ctx, geminiUploadDeadline)
	defer cancel()

	file, err := p.uploadFile(uploadCtx, clipPath)
	if err != nil {
		return Result{}, fmt.Errorf("gemini upload: %w", err)
	}

	file, err = p.awaitActive(uploadCtx, file)
	if err != nil {
		return Result{}, fmt.Errorf("gemini file processing: %w", err)
	}

	prompt := fmt.Sprintf("You are analyzing a short security camera video clip. Describe what happens as a short narrative.%s", ConfidenceInstruction)
	return p.generate(ctx, []geminiPart{{FileData: &geminiFileData{MimeType: file.MimeType, FileURI: file.URI}}}, prompt)
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *geminiProvider) generate(ctx context.Context, extraParts []geminiPart, prompt string) (Result, error) {
	parts := append([]geminiPart{{Text: prompt}}, extraParts...)
	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: parts}}})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent?key=%s", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

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
		return Result{}, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("gemini: malformed response")
	}

	out := ParseResponse(parsed.Candidates[0].Content.Parts[0].Text)
	return Result{
		Description:    out.Description,
		SelfConfidence: out.Confidence,
		TokensIn:       parsed.UsageMetadata.PromptTokenCount,
		TokensOut:      parsed.UsageMetadata.CandidatesTokenCount,
		Success:        out.Description != "",
	}, nil
}

type geminiFile struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

func (p *geminiProvider) uploadFile(ctx context.Context, clipPath string) (geminiFile, error) {
	data, err := os.ReadFile(clipPath)
	if err != nil {
		return geminiFile{}, err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(clipPath))
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/upload/v1beta/files?key=%s", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return geminiFile{}, err
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")

	resp, err := p.client.Do(req)
	if err != nil {
		return geminiFile{}, err
	}
	defer resp.Body.Close()

	var wrapper struct {
		File geminiFile `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return geminiFile{}, err
	}
	return wrapper.File, nil
}

// awaitActive polls file.state until it leaves PROCESSING or the context
// deadline passes, per spec.md §6.
func (p *geminiProvider) awaitActive(ctx context.Context, file geminiFile) (geminiFile, error) {
	for file.State == "PROCESSING" {
		select {
		case <-ctx.Done():
			return file, ctx.Err()
		case <-time.After(2 * time.Second):
		}

		url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/%s?key=%s", file.Name, p.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return file, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return file, err
		}
		var updated geminiFile
		err = json.NewDecoder(resp.Body).Decode(&updated)
		resp.Body.Close()
		if err != nil {
			return file, err
		}
		file = updated
	}
	if file.State != "ACTIVE" {
		return file, fmt.Errorf("file entered state %q", file.State)
	}
	return file, nil
}
