package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000/v1/"
	defaultModel   = "microsoft/Phi-3-mini-4k-instruct"
	defaultTimeout = 60 * time.Second
	// vLLM and TGI accept any key when auth is off, but the header must be present.
	placeholderAPIKey = "EMPTY"
)

var (
	ErrEmptyCompletion = errors.New("model returned no completion")
	ErrModelNotServed  = errors.New("model is not served by the inference server")
)

// GenerationParams are the fixed sampling settings for pet replies
type GenerationParams struct {
	MaxNewTokens      int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	NoRepeatNgramSize int
	NumSequences      int
	EarlyStopping     bool
	SkipSpecialTokens bool
	StopSequences     []string
}

// ReplyParams is what every reply is generated with. Not configurable per request.
var ReplyParams = GenerationParams{
	MaxNewTokens:      40,
	Temperature:       0.7,
	TopP:              0.9,
	RepetitionPenalty: 1.2,
	NoRepeatNgramSize: 3,
	NumSequences:      1,
	EarlyStopping:     true,
	SkipSpecialTokens: true,
	// Phi-3 end-of-turn and end-of-sequence tokens
	StopSequences: []string{"<|end|>", "<|endoftext|>"},
}

// Config configures the inference server connection
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Client generates raw continuations from a causal language model already loaded
// by an OpenAI-compatible inference server
type Client struct {
	api    openai.Client
	model  string
	params GenerationParams
}

// NewClient creates a new inference client
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	api := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
	)

	return &Client{
		api:    api,
		model:  model,
		params: ReplyParams,
	}
}

// Model returns the served model identifier
func (c *Client) Model() string {
	return c.model
}

// Generate samples a continuation of prompt. Only the newly generated text is returned.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	p := c.params

	completion, err := c.api.Completions.New(ctx, openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(c.model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens:   openai.Int(int64(p.MaxNewTokens)),
		Temperature: openai.Float(p.Temperature),
		TopP:        openai.Float(p.TopP),
		N:           openai.Int(int64(p.NumSequences)),
		Stop:        openai.CompletionNewParamsStopUnion{OfStringArray: p.StopSequences},
	},
		// Hugging Face generation knobs outside the OpenAI schema
		option.WithJSONSet("repetition_penalty", p.RepetitionPenalty),
		option.WithJSONSet("no_repeat_ngram_size", p.NoRepeatNgramSize),
		option.WithJSONSet("do_sample", true),
		option.WithJSONSet("early_stopping", p.EarlyStopping),
		option.WithJSONSet("skip_special_tokens", p.SkipSpecialTokens),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(completion.Choices[0].Text), nil
}

// CheckModel confirms the inference server has the configured model loaded.
// Called once at startup; a failure means the process should not serve.
func (c *Client) CheckModel(ctx context.Context) error {
	page, err := c.api.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list served models: %w", err)
	}

	served := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		if m.ID == c.model {
			return nil
		}
		served = append(served, m.ID)
	}

	return fmt.Errorf("%w: %s (served: %s)", ErrModelNotServed, c.model, strings.Join(served, ", "))
}
