package aiprovider

import (
	"net/http"
	"time"
)

func init() {
	Register("grok", func(apiKey string) Provider {
		return &chatProvider{
			name:    "grok",
			baseURL: "https://api.x.ai/v1/chat/completions",
			model:   "grok-2-vision",
			apiKey:  apiKey,
			client:  &http.Client{Timeout: 30 * time.Second},
			rates:   CostRates{InputPer1K: 0.0002, OutputPer1K: 0.001, TokensPerImage: 100},
			retry:   GrokRetryPolicy(),
		}
	})
}
