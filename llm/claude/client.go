package claude

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
)

var (
	// claudePromptScope is the logging scope for Claude prompts
	claudePromptScope = ctxlog.NewScope("claude_prompt", ctxlog.EnabledBy("PDFASK_LOGGING_CLAUDE_PROMPT"))

	// claudeResponseScope is the logging scope for Claude responses
	claudeResponseScope = ctxlog.NewScope("claude_response", ctxlog.EnabledBy("PDFASK_LOGGING_CLAUDE_RESPONSE"))
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 4096
)

var _ pdfask.LLMClient = (*Client)(nil)

// Client is a client for the Claude API.
type Client struct {
	apiClient apiClient

	// model is the model to use for generation.
	// It can be overridden using WithModel option.
	model string

	baseURL    string
	httpClient *http.Client

	// maxTokens is required by the Messages API.
	maxTokens int64

	temperature  *float64
	systemPrompt string
}

// Option is a configuration option for the Claude client.
type Option func(*Client)

// WithModel sets the model to use for text generation.
// Default: "claude-sonnet-4-5"
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: 4096
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 1.0
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func newClient(options ...Option) *Client {
	client := &Client{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// New creates a new client for the Claude API. The API key is required.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Anthropic API key is required", goerr.Tag(pdfask.TagCredentialMissing))
	}

	client := newClient(options...)

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if client.baseURL != "" {
		opts = append(opts, option.WithBaseURL(client.baseURL))
	}
	if client.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(client.httpClient))
	}

	anthropicClient := anthropic.NewClient(opts...)
	client.apiClient = &realAPIClient{client: &anthropicClient}

	return client, nil
}

// Model returns the model name used for generation.
func (c *Client) Model() string {
	return c.model
}

func convertInputs(input ...pdfask.Input) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(input))

	for _, in := range input {
		switch v := in.(type) {
		case pdfask.Text:
			blocks = append(blocks, anthropic.NewTextBlock(string(v)))
		case pdfask.PDF:
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
				Data: v.Base64(),
			}))
		default:
			return nil, goerr.Wrap(pdfask.ErrInvalidParameter, "unsupported input", goerr.V("input", in.String()))
		}
	}

	return blocks, nil
}

func (c *Client) createRequest(blocks []anthropic.ContentBlockParamUnion) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if c.temperature != nil {
		params.Temperature = anthropic.Float(*c.temperature)
	}
	if c.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: c.systemPrompt},
		}
	}
	return params
}

// processResponse converts Claude response to pdfask.Response
func processResponse(resp *anthropic.Message) (*pdfask.Response, error) {
	if resp == nil {
		return nil, goerr.New("empty Claude response", goerr.Tag(pdfask.TagMalformedResponse))
	}

	if resp.StopReason == "refusal" {
		return nil, goerr.New("response refused by Claude", goerr.Tag(pdfask.TagRemoteFailure))
	}

	response := &pdfask.Response{
		InputToken:  int(resp.Usage.InputTokens),
		OutputToken: int(resp.Usage.OutputTokens),
	}

	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if block.Text != "" {
			response.Texts = append(response.Texts, block.Text)
		}
	}

	if len(response.Texts) == 0 {
		return nil, goerr.New("no text in Claude response",
			goerr.V("stop_reason", string(resp.StopReason)),
			goerr.Tag(pdfask.TagMalformedResponse))
	}

	return response, nil
}

// Generate sends the inputs as a single user message and returns the answer.
func (c *Client) Generate(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
	blocks, err := convertInputs(input...)
	if err != nil {
		return nil, err
	}

	promptLogger := ctxlog.From(ctx, claudePromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		promptLogger.Info("Claude prompt",
			"model", c.model,
			"system_prompt", c.systemPrompt,
			"inputs", input,
		)
	}

	resp, err := c.apiClient.MessagesNew(ctx, c.createRequest(blocks))
	if err != nil {
		opts := []goerr.Option{
			goerr.V("model", c.model),
			goerr.Tag(pdfask.TagRemoteFailure),
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			opts = append(opts, goerr.V("status_code", apiErr.StatusCode))
		}
		return nil, goerr.Wrap(err, "failed to create message", opts...)
	}

	response, err := processResponse(resp)
	if err != nil {
		return nil, err
	}

	responseLogger := ctxlog.From(ctx, claudeResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("Claude response",
			"stop_reason", string(resp.StopReason),
			"usage", map[string]any{
				"input_tokens":  resp.Usage.InputTokens,
				"output_tokens": resp.Usage.OutputTokens,
			},
			"texts", response.Texts,
		)
	}

	return response, nil
}
