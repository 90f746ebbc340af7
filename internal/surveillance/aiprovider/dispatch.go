package aiprovider

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/technosupport/surveillance-core/internal/metrics"
	"github.com/technosupport/surveillance-core/internal/surveillance/evidence"
)

// UsageEntry is one append-only row of the AI usage ledger (spec.md §4.5:
// "every call — successful or failed — is appended to a usage log").
type UsageEntry struct {
	Provider       string
	Success        bool
	TokensIn       int
	TokensOut      int
	CostUSD        float64
	IsEstimated    bool
	ImageCount     int
	ResponseTimeMS int64
	ErrorMessage   string
	Timestamp      time.Time
}

// UsageLog receives one UsageEntry per provider attempt, win or lose.
type UsageLog interface {
	Append(UsageEntry)
}

// Chain dispatches describe_image/describe_images/describe_video calls
// across the configured provider order, retrying each provider per its own
// RetryPolicy before moving to the next. Implements evidence.Dispatcher.
type Chain struct {
	Order    []string          // provider names, in fallback order
	Built    map[string]Provider // name -> constructed provider
	Usage    UsageLog
	Rates    map[string]CostRates // provider name -> rates, falls back to Provider.CostRates()
}

var _ evidence.Dispatcher = (*Chain)(nil)

// HasVideoCapableProvider reports whether any provider in Order supports
// native video upload.
func (c *Chain) HasVideoCapableProvider() bool {
	for _, name := range c.Order {
		if p, ok := c.Built[name]; ok && p.VideoMethod() == VideoNativeUpload {
			return true
		}
	}
	return false
}

func (c *Chain) DispatchVideo(ctx context.Context, clipPath string, dctx evidence.DispatchContext) (evidence.DispatchResult, error) {
	// One video file is uploaded, not a sequence of frames — frame_count_used
	// stays null for video_native per spec, but the cost-estimate fallback
	// still needs a non-zero image count if the provider reports no usage.
	return c.run(ctx, dctx, 1, func(p Provider, pctx PromptContext) (Result, error) {
		if p.VideoMethod() != VideoNativeUpload {
			return Result{}, ErrNotSupported
		}
		return p.DescribeVideo(ctx, clipPath, pctx)
	})
}

func (c *Chain) DispatchImages(ctx context.Context, jpegs [][]byte, dctx evidence.DispatchContext) (evidence.DispatchResult, error) {
	b64 := make([]string, len(jpegs))
	for i, j := range jpegs {
		b64[i] = encodeBase64(j)
	}
	return c.run(ctx, dctx, len(jpegs), func(p Provider, pctx PromptContext) (Result, error) {
		return p.DescribeImages(ctx, b64, pctx)
	})
}

func (c *Chain) DispatchImage(ctx context.Context, jpeg []byte, dctx evidence.DispatchContext) (evidence.DispatchResult, error) {
	b64 := encodeBase64(jpeg)
	return c.run(ctx, dctx, 1, func(p Provider, pctx PromptContext) (Result, error) {
		return p.DescribeImage(ctx, b64, pctx)
	})
}

// run dispatches across the provider order. numImages is the count of
// frames/images actually attached to this call (1 for a single snapshot or
// a video upload, len(jpegs) for a multi-frame call) — it drives both the
// multi-frame prompt's frame count and the cost-estimation fallback.
func (c *Chain) run(ctx context.Context, dctx evidence.DispatchContext, numImages int, call func(Provider, PromptContext) (Result, error)) (evidence.DispatchResult, error) {
	pctx := PromptContext{
		CameraName:         dctx.CameraName,
		TimestampISO:       dctx.Timestamp.Format(time.RFC3339),
		DetectedTags:       dctx.DetectedTags,
		CustomPrompt:       dctx.CustomPrompt,
		AudioTranscription: dctx.AudioTranscription,
		NumFrames:          numImages,
	}

	var lastErr error
	for _, name := range c.Order {
		p, ok := c.Built[name]
		if !ok {
			continue
		}
		res, err := c.attemptWithRetry(ctx, p, pctx, numImages, call)
		if err == nil && res.Success {
			return toDispatchResult(res), nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNotSupported
	}
	return evidence.DispatchResult{}, lastErr
}

// attemptWithRetry runs one provider's retry policy, logging every attempt
// (success or failure) to the usage ledger, per spec.md §4.5.
func (c *Chain) attemptWithRetry(ctx context.Context, p Provider, pctx PromptContext, numImages int, call func(Provider, PromptContext) (Result, error)) (Result, error) {
	policy := p.RetryPolicy()
	attempts := policy.Retries + 1

	var res Result
	var err error
	for i := 0; i < attempts; i++ {
		start := time.Now()
		res, err = call(p, pctx)
		elapsed := time.Since(start).Milliseconds()
		res.ResponseTimeMS = elapsed
		res.ProviderTag = p.Name()
		res.NumImages = numImages

		label := "success"
		if err != nil || !res.Success {
			label = "failure"
		}
		metrics.AIInferenceTotal.WithLabelValues(p.Name(), label).Inc()
		metrics.AIInferenceLatency.WithLabelValues(p.Name()).Observe(float64(elapsed))

		if err == nil && res.Success {
			c.applyCost(p, &res)
			c.log(res, "")
			return res, nil
		}

		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		c.log(res, errMsg)

		if !isRetryable(err) || i == attempts-1 {
			break
		}
		if i < len(policy.Delays) {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(policy.Delays[i]):
			}
		}
	}
	if err == nil {
		err = ErrNotSupported
	}
	return res, err
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "500") || strings.Contains(msg, "503")
}

func (c *Chain) applyCost(p Provider, res *Result) {
	rates := p.CostRates()
	if c.Rates != nil {
		if r, ok := c.Rates[p.Name()]; ok {
			rates = r
		}
	}
	if res.TokensIn > 0 || res.TokensOut > 0 {
		res.CostUSD = float64(res.TokensIn)/1000*rates.InputPer1K + float64(res.TokensOut)/1000*rates.OutputPer1K
		res.IsEstimated = false
		return
	}
	perImage := rates.TokensPerImage
	if perImage == 0 {
		perImage = 100
	}
	numImages := res.NumImages
	if numImages <= 0 {
		numImages = 1
	}
	estimatedTokens := 200 + numImages*perImage + 100
	res.TokensIn = estimatedTokens
	res.CostUSD = float64(estimatedTokens) / 1000 * rates.InputPer1K
	res.IsEstimated = true
}

func (c *Chain) log(res Result, errMsg string) {
	if c.Usage == nil {
		return
	}
	c.Usage.Append(UsageEntry{
		Provider:       res.ProviderTag,
		Success:        res.Success,
		TokensIn:       res.TokensIn,
		TokensOut:      res.TokensOut,
		CostUSD:        res.CostUSD,
		IsEstimated:    res.IsEstimated,
		ImageCount:     res.NumImages,
		ResponseTimeMS: res.ResponseTimeMS,
		ErrorMessage:   errMsg,
	})
}

func toDispatchResult(res Result) evidence.DispatchResult {
	return evidence.DispatchResult{
		Description:    res.Description,
		Confidence:     res.SelfConfidence,
		ProviderUsed:   res.ProviderTag,
		TokensIn:       res.TokensIn,
		TokensOut:      res.TokensOut,
		ResponseTimeMS: res.ResponseTimeMS,
		CostUSD:        res.CostUSD,
		IsEstimated:    res.IsEstimated,
		Success:        res.Success,
	}
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
