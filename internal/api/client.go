package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is where the backend listens in a local deployment.
const DefaultBaseURL = "http://localhost:8000"

const userAgent = "unstructiq-cli"

type Client struct {
	httpClient *http.Client
	baseURL    string
	log        logrus.FieldLogger
}

// File is the upload payload: a name and a fresh reader over its content.
type File interface {
	Name() string
	Reader() io.Reader
}

// UploadResult is the backend's acknowledgement of an upload.
type UploadResult struct {
	JobID     string          `json:"job_id"`
	Filename  string          `json:"filename,omitempty"`
	FileSize  int64           `json:"file_size,omitempty"`
	Status    string          `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
	Raw       json.RawMessage `json:"-"`
	RequestID string          `json:"-"`
}

// ProcessResponse wraps the results document returned by processing.
type ProcessResponse struct {
	Message   string          `json:"message,omitempty"`
	Results   json.RawMessage `json:"results,omitempty"`
	RequestID string          `json:"-"`
}

// JobStatus is the backend's view of a job.
type JobStatus struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Filename  string `json:"filename,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Blob is a binary export payload.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// NewClient returns a client for DefaultBaseURL. A zero timeout leaves the
// request bounded only by the transport and the caller's context.
func NewClient(httpTimeout time.Duration) *Client {
	if httpTimeout < 0 {
		httpTimeout = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    DefaultBaseURL,
		log:        logrus.StandardLogger(),
	}
}

// NewClientWithBaseURL allows injecting a custom base URL (used in tests).
func NewClientWithBaseURL(httpTimeout time.Duration, baseURL string) *Client {
	c := NewClient(httpTimeout)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithLogger replaces the logger used for request tracing.
func (c *Client) WithLogger(l logrus.FieldLogger) *Client {
	if l != nil {
		c.log = l
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Health returns the backend's health payload verbatim.
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	body, _, err := c.do(ctx, OpHealth, "", nil, "")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Upload sends the file as multipart part "file". The "prompt" part is only
// included when the prompt has visible content.
func (c *Client) Upload(ctx context.Context, f File, prompt string) (*UploadResult, error) {
	if f == nil {
		return nil, errors.New("no file to upload")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", f.Name())
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, f.Reader()); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if strings.TrimSpace(prompt) != "" {
		if err := mw.WriteField("prompt", prompt); err != nil {
			return nil, fmt.Errorf("build multipart: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	body, hdr, err := c.do(ctx, OpUpload, "", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var out UploadResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.JobID == "" {
		return nil, ErrMissingJobID
	}
	out.Raw = json.RawMessage(body)
	out.RequestID = extractRequestID(hdr)
	return &out, nil
}

// Process triggers processing of an uploaded job and blocks until it finishes.
func (c *Client) Process(ctx context.Context, jobID string) (*ProcessResponse, error) {
	if jobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	body, hdr, err := c.do(ctx, OpProcess, jobID, nil, "")
	if err != nil {
		return nil, err
	}
	var out ProcessResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode process response: %w", err)
	}
	out.RequestID = extractRequestID(hdr)
	return &out, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	body, _, err := c.do(ctx, OpStatus, jobID, nil, "")
	if err != nil {
		return nil, err
	}
	var out JobStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &out, nil
}

// Results fetches the stored results document of a processed job.
func (c *Client) Results(ctx context.Context, jobID string) (json.RawMessage, error) {
	if jobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	body, _, err := c.do(ctx, OpResults, jobID, nil, "")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) ExportCSV(ctx context.Context, jobID string) (*Blob, error) {
	return c.export(ctx, OpExportCSV, jobID)
}

func (c *Client) ExportJSON(ctx context.Context, jobID string) (*Blob, error) {
	return c.export(ctx, OpExportJSON, jobID)
}

func (c *Client) export(ctx context.Context, op Operation, jobID string) (*Blob, error) {
	if jobID == "" {
		return nil, errors.New("job id cannot be empty")
	}
	body, hdr, err := c.do(ctx, op, jobID, nil, "")
	if err != nil {
		return nil, err
	}
	return &Blob{
		Data:        body,
		ContentType: hdr.Get("Content-Type"),
		Filename:    ExportFilename(op, jobID),
	}, nil
}

// do issues one request for op and returns the raw success body.
func (c *Client) do(ctx context.Context, op Operation, jobID string, body io.Reader, contentType string) ([]byte, http.Header, error) {
	ep, ok := Endpoints[op]
	if !ok {
		return nil, nil, fmt.Errorf("unknown operation %q", op)
	}
	endpoint := c.baseURL + ep.Resolve(jobID)
	req, err := http.NewRequestWithContext(ctx, ep.Method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ep.Response == ResponseBlob {
		req.Header.Set("Accept", "application/octet-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	log := c.log.WithFields(logrus.Fields{"op": op, "method": ep.Method, "path": req.URL.Path, "request_id": reqID})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("http request: %w", ctx.Err())
		}
		log.WithError(err).Debug("request failed")
		return nil, nil, &UnreachableError{Host: hostOf(c.baseURL), Err: err}
	}
	defer resp.Body.Close()
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start).Round(time.Millisecond)})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(raw),
			Raw:        raw,
			RequestID:  extractRequestID(resp.Header),
		}
		if apiErr.RequestID == "" {
			apiErr.RequestID = reqID
		}
		log.WithField("detail", apiErr.Detail).Debug("request rejected")
		return nil, resp.Header, classifyAPIError(apiErr)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	log.WithField("bytes", len(data)).Debug("request done")
	return data, resp.Header, nil
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(h http.Header) string {
	if h == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Correlation-Id", "X-Amzn-Requestid"} {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func hostOf(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Host
}
