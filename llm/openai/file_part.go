package openai

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/sashabaranov/go-openai"
)

const (
	pdfDataURLPrefix = "data:" + pdfask.PDFMimeType + ";base64,"

	// documentFileName is the name reported for inline documents.
	documentFileName = "document.pdf"
)

// fileDoer turns PDF data URLs into "file" content parts before a chat
// completion request leaves the process. go-openai only models text and
// image_url parts, while the API accepts documents only as file parts.
type fileDoer struct {
	base openai.HTTPDoer
}

func (d *fileDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Body == nil || req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/chat/completions") {
		return d.base.Do(req)
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read chat completion request")
	}

	rewritten, err := rewriteFileParts(body)
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(rewritten))
	out.ContentLength = int64(len(rewritten))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(rewritten)), nil
	}
	return d.base.Do(out)
}

// rewriteFileParts replaces every image_url part carrying a PDF data URL
// with {"type":"file","file":{"filename","file_data"}}. Other parts are
// kept as they are.
func rewriteFileParts(body []byte) ([]byte, error) {
	if !bytes.Contains(body, []byte(pdfDataURLPrefix)) {
		return body, nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to decode chat completion request")
	}

	var messages []map[string]json.RawMessage
	if err := json.Unmarshal(payload["messages"], &messages); err != nil {
		return nil, goerr.Wrap(err, "failed to decode chat completion messages")
	}

	for _, msg := range messages {
		var parts []map[string]any
		if err := json.Unmarshal(msg["content"], &parts); err != nil {
			// plain string content
			continue
		}

		for i, part := range parts {
			if part["type"] != string(openai.ChatMessagePartTypeImageURL) {
				continue
			}
			image, _ := part["image_url"].(map[string]any)
			url, _ := image["url"].(string)
			if !strings.HasPrefix(url, pdfDataURLPrefix) {
				continue
			}
			parts[i] = map[string]any{
				"type": "file",
				"file": map[string]any{
					"filename":  documentFileName,
					"file_data": url,
				},
			}
		}

		content, err := json.Marshal(parts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode message content")
		}
		msg["content"] = content
	}

	encoded, err := json.Marshal(messages)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode chat completion messages")
	}
	payload["messages"] = encoded

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode chat completion request")
	}
	return out, nil
}
