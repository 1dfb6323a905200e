package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"
)

var (
	// geminiPromptScope is the logging scope for Gemini prompts
	geminiPromptScope = ctxlog.NewScope("gemini_prompt", ctxlog.EnabledBy("PDFASK_LOGGING_GEMINI_PROMPT"))

	// geminiResponseScope is the logging scope for Gemini responses
	geminiResponseScope = ctxlog.NewScope("gemini_response", ctxlog.EnabledBy("PDFASK_LOGGING_GEMINI_RESPONSE"))
)

var _ pdfask.LLMClient = (*Client)(nil)

// Client is a client for the Gemini API.
type Client struct {
	apiClient apiClient

	// model is the model to use for generation.
	// It can be overridden using WithModel option.
	model string

	// baseURL overrides the Gemini API endpoint.
	baseURL string

	// httpClient is used for API calls when set.
	httpClient *http.Client

	// generationConfig contains the default generation parameters
	generationConfig *genai.GenerateContentConfig

	// systemPrompt is the system instruction sent with each request.
	systemPrompt string
}

// Option is a configuration option for the Gemini client.
type Option func(*Client)

// WithModel sets the model to use for text generation.
// Default: "gemini-2.5-flash"
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 2.0
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.generationConfig.Temperature = &temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int32) Option {
	return func(c *Client) {
		c.generationConfig.MaxOutputTokens = maxTokens
	}
}

// WithSystemPrompt sets the system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// WithBaseURL overrides the API endpoint, e.g. for a proxy or a test server.
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
		model:            DefaultModel,
		generationConfig: &genai.GenerateContentConfig{},
	}

	for _, option := range options {
		option(client)
	}

	if client.systemPrompt != "" {
		client.generationConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: client.systemPrompt},
			},
		}
	}

	return client
}

// New creates a new client for the Gemini API. The API key is required.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Gemini API key is required", goerr.Tag(pdfask.TagCredentialMissing))
	}

	client := newClient(options...)

	config := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client.httpClient,
	}
	if client.baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{
			BaseURL: client.baseURL,
		}
	}

	genaiClient, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client", goerr.Tag(pdfask.TagRemoteFailure))
	}

	client.apiClient = &realAPIClient{client: genaiClient}
	return client, nil
}

// Model returns the model name used for generation.
func (c *Client) Model() string {
	return c.model
}

// convertInputs converts pdfask.Input to Gemini parts
func convertInputs(input ...pdfask.Input) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(input))

	for _, in := range input {
		switch v := in.(type) {
		case pdfask.Text:
			parts = append(parts, &genai.Part{Text: string(v)})
		case pdfask.PDF:
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: v.MimeType(),
					Data:     v.Data(),
				},
			})
		default:
			return nil, goerr.Wrap(pdfask.ErrInvalidParameter, "unsupported input", goerr.V("input", in.String()))
		}
	}

	return parts, nil
}

// processResponse converts Gemini response to pdfask.Response
func processResponse(resp *genai.GenerateContentResponse) (*pdfask.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, goerr.New("no candidates in Gemini response", goerr.Tag(pdfask.TagMalformedResponse))
	}

	response := &pdfask.Response{}

	if resp.UsageMetadata != nil {
		response.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		response.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	candidate := resp.Candidates[0]
	reason := string(candidate.FinishReason)
	if strings.Contains(reason, "PROHIBITED_CONTENT") || strings.Contains(reason, "SAFETY") || strings.Contains(reason, "BLOCKLIST") {
		return nil, goerr.New("response blocked by Gemini", goerr.V("finish_reason", reason), goerr.Tag(pdfask.TagRemoteFailure))
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			response.Texts = append(response.Texts, part.Text)
		}
	}

	if len(response.Texts) == 0 {
		return nil, goerr.New("no text in Gemini response", goerr.V("finish_reason", reason), goerr.Tag(pdfask.TagMalformedResponse))
	}

	return response, nil
}

// Generate sends the inputs as a single user message and returns the answer.
func (c *Client) Generate(ctx context.Context, input ...pdfask.Input) (*pdfask.Response, error) {
	parts, err := convertInputs(input...)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: parts,
		},
	}

	promptLogger := ctxlog.From(ctx, geminiPromptScope)
	if promptLogger.Enabled(ctx, slog.LevelInfo) {
		promptLogger.Info("Gemini prompt",
			"model", c.model,
			"system_prompt", c.systemPrompt,
			"inputs", input,
		)
	}

	result, err := c.apiClient.GenerateContent(ctx, c.model, contents, c.generationConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content",
			goerr.V("model", c.model),
			goerr.Tag(pdfask.TagRemoteFailure),
		)
	}

	response, err := processResponse(result)
	if err != nil {
		return nil, err
	}

	responseLogger := ctxlog.From(ctx, geminiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("Gemini response",
			"finish_reason", string(result.Candidates[0].FinishReason),
			"usage", map[string]any{
				"prompt_tokens":     response.InputToken,
				"candidates_tokens": response.OutputToken,
			},
			"texts", response.Texts,
		)
	}

	return response, nil
}
