package openai

import "github.com/sashabaranov/go-openai"

// Export for testing
type APIClient = apiClient

var (
	ConvertInputs    = convertInputs
	PDFDataURL       = pdfDataURL
	RewriteFileParts = rewriteFileParts
)

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(client apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = client
	return c
}

// CreateRequest exposes request construction for testing
func (c *Client) CreateRequest(parts ...openai.ChatMessagePart) openai.ChatCompletionRequest {
	return c.createRequest(parts)
}
