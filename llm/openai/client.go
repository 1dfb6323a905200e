package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/sashabaranov/go-openai"
)

var (
	// openaiPromptScope is the logging scope for OpenAI prompts
	openaiPromptScope = ctxlog.NewScope("openai_prompt", ctxlog.EnabledBy("PDFASK_LOGGING_OPENAI_PROMPT"))

	// openaiResponseScope is the logging scope for OpenAI responses
	openaiResponseScope = ctxlog.NewScope("openai_response", ctxlog.EnabledBy("PDFASK_LOGGING_OPENAI_RESPONSE"))
)

const (
	DefaultModel = "gpt-5"
)

var _ pdfask.LLMClient = (*Client)(nil)

// Client is a client for the OpenAI chat completion API.
type Client struct {
	apiClient apiClient

	// model is the model to use for chat completions.
	// It can be overridden using WithModel option.
	model string

	// baseURL is the custom base URL for the OpenAI API.
	// If empty, uses the default OpenAI API endpoints.
	baseURL string

	httpClient *http.Client

	// MaxTokens limits the number of tokens to generate.
	maxTokens int

	// ReasoningEffort tunes how much reasoning time the model spends ("minimal", "medium", "high").
	reasoningEffort string

	systemPrompt string
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
// See default model in [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithMaxTokens sets the maximum number of completion tokens.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithReasoningEffort sets the reasoning_effort parameter for GPT-5 models.
// Supported values: "minimal", "medium", "high". Empty string omits it.
func WithReasoningEffort(effort string) Option {
	return func(c *Client) {
		c.reasoningEffort = effort
	}
}

// WithSystemPrompt sets the system prompt to use for chat completions.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithBaseURL sets the custom base URL for the OpenAI API.
// Allows usage with compatible endpoints, proxies, or test servers.
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
		model:           DefaultModel,
		reasoningEffort: "minimal",
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// New creates a new client for the OpenAI API. The API key is required.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required", goerr.Tag(pdfask.TagCredentialMissing))
	}

	client := newClient(options...)

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	var doer openai.HTTPDoer = &http.Client{}
	if client.httpClient != nil {
		doer = client.httpClient
	}
	config.HTTPClient = &fileDoer{base: doer}

	client.apiClient = &realAPIClient{client: openai.NewClientWithConfig(config)}
	return client, nil
}

// Model returns the model name used for chat completions.
func (c *Client) Model() string {
	return c.model
}

// pdfDataURL encodes a document as a base64 data URL. It travels in an
// image_url part until fileDoer rewrites it into a file part.
func pdfDataURL(doc pdfask.PDF) string {
	return "data:" + doc.MimeType() + ";base64," + doc.Base64()
}

func convertInputs(input ...pdfask.Input) ([]openai.ChatMessagePart, error) {
	parts := make([]openai.ChatMessagePart, 0, len(input))

	for _, in := range input {
		switch v := in.(type) {
		case pdfask.Text:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: string(v),
			})
		case pdfask.PDF:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: pdfDataURL(v),
				},
			})
		default:
			return nil, goerr.Wrap(pdfask.ErrInvalidParameter, "unsupported input", goerr.V("input", in.String()))
		}
	}

	return parts, nil
}

func (c *Client) createRequest(parts []openai.ChatMessagePart) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	req := openai.ChatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: c.maxTokens,
	}
	if c.reasoningEffort != "" {
		req.ReasoningEffort = c.reasoningEffort
	}
	return req
}

// apiErrorOptions attaches the HTTP status of an API error when available.
func apiErrorOptions(err error) []goerr.Option {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return nil
	}
	return []goerr.Option{
		goerr.V("status_code", apiErr.HTTPStatusCode),
		goerr.V("error_type", apiErr.Type),
	}
}

// Generate sends the inputs as a single user message and returns the answer.
func (c *Client) Generate(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
	parts, err := convertInputs(input...)
	if err != nil {
		return nil, err
	}
	req := c.createRequest(parts)

	promptLogger := ctxlog.From(ctx, openaiPromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		promptLogger.Info("OpenAI prompt",
			"model", c.model,
			"system_prompt", c.systemPrompt,
			"inputs", input,
		)
	}

	resp, err := c.apiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		opts := append(apiErrorOptions(err),
			goerr.V("model", c.model),
			goerr.Tag(pdfask.TagRemoteFailure),
		)
		return nil, goerr.Wrap(err, "failed to create chat completion", opts...)
	}

	if len(resp.Choices) == 0 {
		return nil, goerr.New("no choices in OpenAI response", goerr.Tag(pdfask.TagMalformedResponse))
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, goerr.New("response blocked by content filter", goerr.Tag(pdfask.TagRemoteFailure))
	}
	if choice.Message.Content == "" {
		return nil, goerr.New("no text in OpenAI response",
			goerr.V("finish_reason", choice.FinishReason),
			goerr.V("refusal", choice.Message.Refusal),
			goerr.Tag(pdfask.TagMalformedResponse))
	}

	response := &pdfask.Response{
		Texts:       []string{choice.Message.Content},
		InputToken:  resp.Usage.PromptTokens,
		OutputToken: resp.Usage.CompletionTokens,
	}

	responseLogger := ctxlog.From(ctx, openaiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("OpenAI response",
			"finish_reason", choice.FinishReason,
			"usage", map[string]any{
				"prompt_tokens":     resp.Usage.PromptTokens,
				"completion_tokens": resp.Usage.CompletionTokens,
				"total_tokens":      resp.Usage.TotalTokens,
			},
			"content", choice.Message.Content,
		)
	}

	return response, nil
}
