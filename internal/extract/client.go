package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// MinDocumentSize rejects empty or truncated uploads before they waste
	// remote quota.
	MinDocumentSize = 1024
	// DefaultMaxDocumentSize bounds uploads at 10 MiB.
	DefaultMaxDocumentSize = 10 * 1024 * 1024

	// AcceptedMIMEType is the one document class we extract from.
	AcceptedMIMEType = "application/pdf"

	defaultModel        = "gpt-4o"
	defaultBaseURL      = "https://api.openai.com"
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 4 * time.Minute
	cleanupTimeout      = 15 * time.Second
)

// Document is a syllabus upload presented for extraction.
type Document struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// Client extracts structured event data from a syllabus using the OpenAI
// assistants API. It stages the document, runs a schema-constrained
// extraction, polls to completion, and releases every remote resource it
// allocated on all exit paths.
type Client struct {
	apiKey       string
	model        string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	maxSize      int64
	logger       *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithTimeout bounds one full extraction when the caller's context carries
// no deadline of its own.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMaxDocumentSize(n int64) Option {
	return func(c *Client) { c.maxSize = n }
}

func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		model:        defaultModel,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
		maxSize:      DefaultMaxDocumentSize,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ValidateDocument checks MIME type and size bounds. It runs before any
// upload so obviously invalid input never reaches the remote service.
func (c *Client) ValidateDocument(doc Document) error {
	if doc.MIMEType != AcceptedMIMEType {
		return newError(CategoryInvalidInput,
			fmt.Sprintf("unsupported file type %q: please upload a PDF syllabus", doc.MIMEType), nil)
	}
	if doc.Size > c.maxSize {
		return newError(CategoryInvalidInput,
			fmt.Sprintf("file is %.1fMB, maximum allowed is %dMB", float64(doc.Size)/1024/1024, c.maxSize/1024/1024), nil)
	}
	if doc.Size < MinDocumentSize {
		return newError(CategoryInvalidInput,
			fmt.Sprintf("file is only %d bytes and appears empty or corrupted", doc.Size), nil)
	}
	return nil
}

// Extract runs the full extraction pipeline for one document.
func (c *Client) Extract(ctx context.Context, doc Document) (*Result, error) {
	if err := c.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if !c.Configured() {
		return nil, newError(CategoryMisconfigured, "extraction service is not configured", nil)
	}

	// A run that never terminates must not hold the pipeline open forever,
	// even for callers that pass an unbounded context.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	fileID, err := c.uploadFile(ctx, doc)
	if err != nil {
		return nil, c.categorize(err, "stage document with extraction service")
	}
	defer c.cleanup(ctx, "DELETE", "/v1/files/"+fileID)

	assistantID, err := c.createAssistant(ctx)
	if err != nil {
		return nil, c.categorize(err, "create extraction agent")
	}
	defer c.cleanup(ctx, "DELETE", "/v1/assistants/"+assistantID)

	threadID, err := c.createThread(ctx, fileID)
	if err != nil {
		return nil, c.categorize(err, "create extraction session")
	}
	defer c.cleanup(ctx, "DELETE", "/v1/threads/"+threadID)

	runID, err := c.createRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, c.categorize(err, "start extraction run")
	}

	status, err := c.pollRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}
	if status != "completed" {
		return nil, newError(CategoryUnavailable,
			fmt.Sprintf("extraction run ended in state %q", status), nil)
	}

	text, err := c.latestMessageText(ctx, threadID)
	if err != nil {
		return nil, c.categorize(err, "fetch extraction result")
	}

	return parseResult(text)
}

type createdObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) uploadFile(ctx context.Context, doc Document) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := w.CreateFormFile("file", doc.Name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/files", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.setAuthHeaders(req)

	var out createdObject
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) createAssistant(ctx context.Context) (string, error) {
	payload := map[string]any{
		"name":         "Syllabus Parser",
		"instructions": assistantInstructions,
		"model":        c.model,
		"tools":        []map[string]string{{"type": "file_search"}},
	}
	var out createdObject
	if err := c.doJSON(ctx, "POST", "/v1/assistants", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) createThread(ctx context.Context, fileID string) (string, error) {
	payload := map[string]any{
		"messages": []map[string]any{{
			"role":    "user",
			"content": runMessage,
			"attachments": []map[string]any{{
				"file_id": fileID,
				"tools":   []map[string]string{{"type": "file_search"}},
			}},
		}},
	}
	var out createdObject
	if err := c.doJSON(ctx, "POST", "/v1/threads", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) createRun(ctx context.Context, threadID, assistantID string) (string, error) {
	payload := map[string]any{"assistant_id": assistantID}
	var out createdObject
	if err := c.doJSON(ctx, "POST", "/v1/threads/"+threadID+"/runs", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// pollRun waits for the run to reach a terminal state, bounded by ctx.
func (c *Client) pollRun(ctx context.Context, threadID, runID string) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var out createdObject
		if err := c.doJSON(ctx, "GET", "/v1/threads/"+threadID+"/runs/"+runID, nil, &out); err != nil {
			return "", c.categorize(err, "poll extraction run")
		}

		switch out.Status {
		case "completed", "failed", "cancelled", "incomplete":
			return out.Status, nil
		case "expired":
			return "", newError(CategoryTimeout, "extraction run expired before finishing", nil)
		}

		select {
		case <-ctx.Done():
			return "", newError(CategoryTimeout, "timed out waiting for extraction to finish", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) latestMessageText(ctx context.Context, threadID string) (string, error) {
	var out struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", "/v1/threads/"+threadID+"/messages?order=desc&limit=1", nil, &out); err != nil {
		return "", err
	}

	for _, msg := range out.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" {
				return part.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("no assistant text message in thread")
}

// cleanup releases a remote resource best-effort. It detaches from the
// caller's context so an abandoned request still releases what it allocated,
// and its own failure is logged but never escalated.
func (c *Client) cleanup(ctx context.Context, method, path string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := c.doJSON(ctx, method, path, nil, nil); err != nil {
		c.logger.Warn("extraction resource cleanup failed", "path", path, "error", err)
	}
}

// apiError is a non-2xx response from the extraction service.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("extraction API status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeaders(req)

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("extraction API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode extraction API response: %w", err)
	}
	return nil
}

// categorize maps a transport-level failure to a typed extraction error.
func (c *Client) categorize(err error, msg string) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}

	var ae *apiError
	if errors.As(err, &ae) {
		switch {
		case ae.StatusCode == http.StatusTooManyRequests:
			return newError(CategoryRateLimited, "extraction service is busy, try again shortly", err)
		case ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden:
			return newError(CategoryMisconfigured, "extraction service rejected our credentials", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CategoryTimeout, "extraction timed out", err)
	}

	return newError(CategoryUnavailable, msg, err)
}
