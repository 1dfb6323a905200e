package claude

import "github.com/anthropics/anthropic-sdk-go"

// Export for testing
type APIClient = apiClient

var (
	ConvertInputs   = convertInputs
	ProcessResponse = processResponse
)

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(client apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = client
	return c
}

// CreateRequest exposes request construction for testing
func (c *Client) CreateRequest(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageNewParams {
	return c.createRequest(blocks)
}
