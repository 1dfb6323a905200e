package gemini

import (
	"github.com/m-mizutani/pdfask"
	"google.golang.org/genai"
)

// Export for testing
type APIClient = apiClient

var (
	ConvertInputs   = convertInputs
	ProcessResponse = processResponse
)

// NewWithAPIClient creates a client with a custom API client for testing
func NewWithAPIClient(api apiClient, options ...Option) *Client {
	c := newClient(options...)
	c.apiClient = api
	return c
}

// GetGenerationConfig returns the generationConfig for testing
func (c *Client) GetGenerationConfig() *genai.GenerateContentConfig {
	return c.generationConfig
}

var _ pdfask.LLMClient = NewWithAPIClient(nil)
