package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/llm/openai"
	"github.com/m-mizutani/pdfask/render"
	openaiapi "github.com/sashabaranov/go-openai"
)

type mockAPIClient struct {
	createFunc func(ctx context.Context, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error)
}

func (m *mockAPIClient) CreateChatCompletion(ctx context.Context, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
	return m.createFunc(ctx, req)
}

func testDocument(t *testing.T) pdfask.PDF {
	t.Helper()
	return gt.R1(render.Document("hello openai")).NoError(t)
}

func TestNew(t *testing.T) {
	_, err := openai.New(t.Context(), "")
	gt.Error(t, err)
	gt.Equal(t, pdfask.KindOf(err), pdfask.KindCredentialMissing)

	client := gt.R1(openai.New(t.Context(), "test-key", openai.WithModel("gpt-4.1"))).NoError(t)
	gt.Equal(t, client.Model(), "gpt-4.1")
}

func TestConvertInputs(t *testing.T) {
	doc := testDocument(t)

	parts := gt.R1(openai.ConvertInputs(pdfask.Text("summarize"), doc)).NoError(t)
	gt.A(t, parts).Length(2).Required()
	gt.Equal(t, parts[0].Type, openaiapi.ChatMessagePartTypeText)
	gt.Equal(t, parts[0].Text, "summarize")
	gt.Equal(t, parts[1].Type, openaiapi.ChatMessagePartTypeImageURL)
	gt.V(t, parts[1].ImageURL).NotNil()
	gt.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:application/pdf;base64,"))
	gt.Equal(t, parts[1].ImageURL.URL, openai.PDFDataURL(doc))
}

func TestCreateRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req := openai.NewWithAPIClient(nil).CreateRequest(openaiapi.ChatMessagePart{Type: openaiapi.ChatMessagePartTypeText, Text: "hi"})
		gt.Equal(t, req.Model, openai.DefaultModel)
		gt.Equal(t, req.ReasoningEffort, "minimal")
		gt.A(t, req.Messages).Length(1).Required()
		gt.Equal(t, req.Messages[0].Role, openaiapi.ChatMessageRoleUser)
	})

	t.Run("system prompt and max tokens", func(t *testing.T) {
		client := openai.NewWithAPIClient(nil,
			openai.WithSystemPrompt("be brief"),
			openai.WithMaxTokens(256),
			openai.WithReasoningEffort(""),
		)
		req := client.CreateRequest()
		gt.A(t, req.Messages).Length(2).Required()
		gt.Equal(t, req.Messages[0].Role, openaiapi.ChatMessageRoleSystem)
		gt.Equal(t, req.Messages[0].Content, "be brief")
		gt.Equal(t, req.MaxCompletionTokens, 256)
		gt.Equal(t, req.ReasoningEffort, "")
	})
}

func TestGenerate(t *testing.T) {
	doc := testDocument(t)

	t.Run("returns message content", func(t *testing.T) {
		mock := &mockAPIClient{
			createFunc: func(ctx context.Context, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
				gt.A(t, req.Messages).Length(1).Required()
				gt.A(t, req.Messages[0].MultiContent).Length(2)
				return openaiapi.ChatCompletionResponse{
					Choices: []openaiapi.ChatCompletionChoice{
						{Message: openaiapi.ChatCompletionMessage{Content: "OK"}, FinishReason: openaiapi.FinishReasonStop},
					},
					Usage: openaiapi.Usage{PromptTokens: 10, CompletionTokens: 1},
				}, nil
			},
		}

		resp := gt.R1(openai.NewWithAPIClient(mock).Generate(t.Context(), pdfask.Text("summarize"), doc)).NoError(t)
		gt.Equal(t, resp.Text(), "OK")
		gt.Equal(t, resp.InputToken, 10)
		gt.Equal(t, resp.OutputToken, 1)
	})

	t.Run("API error", func(t *testing.T) {
		mock := &mockAPIClient{
			createFunc: func(context.Context, openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
				return openaiapi.ChatCompletionResponse{}, &openaiapi.APIError{HTTPStatusCode: 429, Message: "rate limited"}
			},
		}

		_, err := openai.NewWithAPIClient(mock).Generate(t.Context(), pdfask.Text("summarize"), doc)
		gt.Error(t, err)
		gt.Equal(t, pdfask.KindOf(err), pdfask.KindRemoteFailure)

		var apiErr *openaiapi.APIError
		gt.True(t, errors.As(err, &apiErr))
		gt.Equal(t, apiErr.HTTPStatusCode, 429)
	})

	t.Run("no choices", func(t *testing.T) {
		mock := &mockAPIClient{
			createFunc: func(context.Context, openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
				return openaiapi.ChatCompletionResponse{}, nil
			},
		}

		_, err := openai.NewWithAPIClient(mock).Generate(t.Context(), pdfask.Text("summarize"), doc)
		gt.Equal(t, pdfask.KindOf(err), pdfask.KindMalformedResponse)
	})

	t.Run("empty content", func(t *testing.T) {
		mock := &mockAPIClient{
			createFunc: func(context.Context, openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
				return openaiapi.ChatCompletionResponse{
					Choices: []openaiapi.ChatCompletionChoice{{FinishReason: openaiapi.FinishReasonLength}},
				}, nil
			},
		}

		_, err := openai.NewWithAPIClient(mock).Generate(t.Context(), pdfask.Text("summarize"), doc)
		gt.Equal(t, pdfask.KindOf(err), pdfask.KindMalformedResponse)
	})

	t.Run("content filter", func(t *testing.T) {
		mock := &mockAPIClient{
			createFunc: func(context.Context, openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
				return openaiapi.ChatCompletionResponse{
					Choices: []openaiapi.ChatCompletionChoice{{FinishReason: openaiapi.FinishReasonContentFilter}},
				}, nil
			},
		}

		_, err := openai.NewWithAPIClient(mock).Generate(t.Context(), pdfask.Text("summarize"), doc)
		gt.Equal(t, pdfask.KindOf(err), pdfask.KindRemoteFailure)
	})
}

func TestRewriteFileParts(t *testing.T) {
	t.Run("PDF data URL becomes a file part", func(t *testing.T) {
		body := []byte(`{"model":"gpt-5","max_completion_tokens":100,"messages":[` +
			`{"role":"system","content":"be brief"},` +
			`{"role":"user","content":[{"type":"text","text":"summarize"},` +
			`{"type":"image_url","image_url":{"url":"data:application/pdf;base64,JVBERi0="}}]}]}`)

		out := gt.R1(openai.RewriteFileParts(body)).NoError(t)
		gt.S(t, string(out)).Contains(`{"file":{"file_data":"data:application/pdf;base64,JVBERi0=","filename":"document.pdf"},"type":"file"}`)
		gt.S(t, string(out)).NotContains("image_url")
		gt.S(t, string(out)).Contains(`"content":"be brief"`)
		gt.S(t, string(out)).Contains(`"max_completion_tokens":100`)
	})

	t.Run("image URLs are kept", func(t *testing.T) {
		body := []byte(`{"messages":[{"role":"user","content":[{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBO"}}]}]}`)
		out := gt.R1(openai.RewriteFileParts(body)).NoError(t)
		gt.Equal(t, string(out), string(body))
	})
}

func TestGenerateWithStubServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/chat/completions")
		gt.Equal(t, r.Header.Get("Authorization"), "Bearer test-key")

		var req struct {
			Messages []struct {
				Content []map[string]any `json:"content"`
			} `json:"messages"`
		}
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.A(t, req.Messages).Length(1).Required()
		gt.A(t, req.Messages[0].Content).Length(2).Required()
		gt.Equal(t, req.Messages[0].Content[0]["type"], any("text"))

		file := req.Messages[0].Content[1]
		gt.Equal(t, file["type"], any("file"))
		_, hasImage := file["image_url"]
		gt.False(t, hasImage)
		data, _ := file["file"].(map[string]any)
		gt.Equal(t, data["filename"], any("document.pdf"))
		fileData, _ := data["file_data"].(string)
		gt.True(t, strings.HasPrefix(fileData, "data:application/pdf;base64,"))

		w.Header().Set("Content-Type", "application/json")
		gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  openai.DefaultModel,
			"choices": []any{
				map[string]any{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "OK"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6},
		}))
	}))
	defer srv.Close()

	client := gt.R1(openai.New(t.Context(), "test-key", openai.WithBaseURL(srv.URL))).NoError(t)
	answer := gt.R1(pdfask.New(client).Analyze(t.Context(), testDocument(t), "summarize")).NoError(t)
	gt.Equal(t, answer, "OK")
}

func TestOpenAILive(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_OPENAI_API_KEY")
	if !ok {
		t.Skip("TEST_OPENAI_API_KEY is not set")
	}

	client := gt.R1(openai.New(t.Context(), apiKey)).NoError(t)
	answer := gt.R1(pdfask.New(client).Analyze(t.Context(), testDocument(t), "What text is written in this document? Reply with the text only.")).NoError(t)
	gt.S(t, strings.ToLower(answer)).Contains("hello openai")
}
