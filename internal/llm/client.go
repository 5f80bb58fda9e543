// Package llm is a thin client for OpenAI-compatible chat-completions APIs
// (Groq, OpenAI, local gateways). It issues exactly one non-streaming request
// per call; the SDK's retry loop is disabled.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Request describes a single-prompt completion.
type Request struct {
	Model               string
	Prompt              string
	Temperature         float64
	TopP                float64
	MaxCompletionTokens int64
	ReasoningEffort     string // low|medium|high
}

// Result holds the message contents of every returned choice, in order.
type Result struct {
	Choices     []string
	TotalTokens int64
}

// Client calls {baseURL}/chat/completions.
type Client struct {
	api openai.Client
}

// NewClient builds a Client for baseURL. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		api: openai.NewClient(
			option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
	}
}

// Complete sends req with apiKey as the bearer token. Transport failures,
// non-2xx statuses and undecodable bodies are returned as errors.
func (c *Client) Complete(ctx context.Context, apiKey string, req Request) (*Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature:         openai.Float(req.Temperature),
		TopP:                openai.Float(req.TopP),
		MaxCompletionTokens: openai.Int(req.MaxCompletionTokens),
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params,
		option.WithAPIKey(apiKey),
		option.WithJSONSet("stream", false),
	)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil {
		return &Result{}, nil
	}

	out := &Result{
		Choices:     make([]string, 0, len(resp.Choices)),
		TotalTokens: resp.Usage.TotalTokens,
	}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, ch.Message.Content)
	}
	return out, nil
}
