package openai_provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mohammad-safakhou/threader/models"
)

var ErrEmptyChoices = errors.New("openai: empty choices")

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// StructuredOutput sends response_format=json_schema when a prompt carries a format.
	StructuredOutput bool
}

// client implements the provider interface on top of the official openai-go SDK
type client struct {
	model       string
	temperature float64
	maxTokens   int
	structured  bool
	api         openai.Client
}

// NewOpenAIClient creates a new OpenAI chat completion client. Retries are
// disabled: a failed call surfaces to the caller as-is.
func NewOpenAIClient(opts Options) *client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: opts.Timeout}))
	}
	return &client{
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		structured:  opts.StructuredOutput,
		api:         openai.NewClient(reqOpts...),
	}
}

func (c *client) Generate(ctx context.Context, prompt models.Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(prompt.System) != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	if c.structured && prompt.Format != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        prompt.Format.Name,
					Description: openai.String(prompt.Format.Description),
					Schema:      prompt.Format.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}
