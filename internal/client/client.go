// Package client is the Go client for the chat service: a thin HTTP wrapper
// that turns the streaming /chat response into an envelope iterator, plus the
// reducer that folds envelopes into a renderable transcript entry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"mime/multipart"
	"net/http"

	"github.com/quill-ai/quill/internal/event"
	"github.com/quill-ai/quill/internal/upload"
)

// TurnRequest is the body of a streaming turn.
type TurnRequest struct {
	Message          string `json:"message"`
	ModelID          string `json:"model_id,omitempty"`
	ConversationID   string `json:"conversation_id,omitempty"`
	WebSearchEnabled bool   `json:"web_search_enabled,omitempty"`
}

// Model is one catalog entry from GET /models.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModelCatalog is the GET /models response.
type ModelCatalog struct {
	Models  []Model `json:"models"`
	Default string  `json:"default"`
}

// Client talks to one chat server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
// Streaming requests carry no client-side timeout; the server bounds turns.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Chat starts one streaming turn and yields envelopes as they arrive. The
// sequence ends after the terminal envelope or with a non-nil error. Breaking
// out early closes the response body and abandons the stream.
func (c *Client) Chat(ctx context.Context, req TurnRequest) iter.Seq2[event.Envelope, error] {
	return func(yield func(event.Envelope, error) bool) {
		body, err := json.Marshal(req)
		if err != nil {
			yield(event.Envelope{}, fmt.Errorf("marshal turn request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
		if err != nil {
			yield(event.Envelope{}, fmt.Errorf("build turn request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			yield(event.Envelope{}, fmt.Errorf("send turn request: %w", err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			yield(event.Envelope{}, c.responseError(resp))
			return
		}

		for env, err := range event.Stream(resp.Body) {
			if !yield(env, err) {
				return
			}
			if err == nil && env.Terminal() {
				return
			}
		}
	}
}

// uploadResponse mirrors the POST /upload body.
type uploadResponse struct {
	UploadID    string             `json:"upload_id"`
	Filename    string             `json:"filename"`
	TextContent string             `json:"text_content"`
	Images      []upload.PageImage `json:"images"`
	PageCount   int                `json:"page_count"`
	MorePages   string             `json:"more_pages"`
}

// Upload sends one document to the server for extraction and returns the
// processed attachment, ready to combine with the next turn's message.
// Returns upload.ErrEmptyDocument when the server found no extractable
// content; the caller must drop the pending attachment in that case.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (upload.Attachment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return upload.Attachment{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return upload.Attachment{}, fmt.Errorf("write upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return upload.Attachment{}, fmt.Errorf("close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return upload.Attachment{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upload.Attachment{}, fmt.Errorf("send upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if code, msg := decodeErrorBody(resp.Body); code == "empty_document" {
			return upload.Attachment{}, fmt.Errorf("%s: %w", filename, upload.ErrEmptyDocument)
		} else if msg != "" {
			return upload.Attachment{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
		}
		return upload.Attachment{}, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return upload.Attachment{}, fmt.Errorf("decode upload response: %w", err)
	}

	return upload.Attachment{
		Filename:  ur.Filename,
		Text:      ur.TextContent,
		Images:    ur.Images,
		MorePages: ur.PageCount - len(ur.Images),
	}, nil
}

// Models fetches the model catalog.
func (c *Client) Models(ctx context.Context) (ModelCatalog, error) {
	var catalog ModelCatalog
	if err := c.getJSON(ctx, "/models", &catalog); err != nil {
		return ModelCatalog{}, err
	}
	return catalog, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.responseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// responseError turns a non-200 response into an error, preferring the
// server's structured message when present.
func (c *Client) responseError(resp *http.Response) error {
	if _, msg := decodeErrorBody(resp.Body); msg != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// decodeErrorBody reads a structured error body, returning zero values when
// the body is not one.
func decodeErrorBody(r io.Reader) (code, message string) {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", ""
	}
	return body.Error, body.Message
}

// WithHTTPClient replaces the underlying HTTP client. Useful for tests and
// custom transports.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}
