package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuongbtq/csv-upload-client/internal/domain"
	"github.com/google/uuid"
)

// FileField is the multipart field name the upload endpoint reads
const FileField = "csvFile"

// Config holds client configuration
type Config struct {
	BaseURL    string
	UploadPath string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the upload and status endpoints
type Client struct {
	baseURL    *url.URL
	uploadPath string
	http       *http.Client
	logger     *slog.Logger
}

// UploadResult is a successful upload
type UploadResult struct {
	FileID  string
	Message string
}

// StatusResult is one answer of the status endpoint
type StatusResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// State classifies the raw status
func (s *StatusResult) State() domain.JobState {
	return domain.ClassifyStatus(s.Status)
}

type uploadResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	FileID  FileID `json:"file_id,omitempty"`
}

// FileID accepts both JSON strings and numbers
type FileID string

func (f *FileID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FileID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("file_id must be a string or number: %w", err)
	}
	*f = FileID(n.String())
	return nil
}

// New creates a new Client instance
func New(cfg *Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	uploadPath := cfg.UploadPath
	if uploadPath == "" {
		uploadPath = "/upload/"
	}
	if !strings.HasPrefix(uploadPath, "/") {
		uploadPath = "/" + uploadPath
	}

	return &Client{
		baseURL:    base,
		uploadPath: uploadPath,
		http:       httpClient,
		logger:     logger,
	}, nil
}

// UploadURL returns the absolute upload endpoint
func (c *Client) UploadURL() string {
	return c.resolve(c.uploadPath)
}

// StatusURL returns the absolute status endpoint for fileID
func (c *Client) StatusURL(fileID string) string {
	return c.resolve("/status/" + url.PathEscape(fileID) + "/")
}

// ResultURL returns the results view for a processed file
func (c *Client) ResultURL(fileID string) string {
	return c.resolve("/invoices/" + url.PathEscape(fileID))
}

// resolve joins p onto the base URL; p must already be escaped
func (c *Client) resolve(p string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + p
}

// Upload posts one file as a multipart payload. A response carrying an
// "error" field yields a *domain.UploadRejectedError; every other failure
// matches domain.ErrTransport.
func (c *Client) Upload(ctx context.Context, fileName string, content io.Reader) (*UploadResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(FileField, fileName)
	if err != nil {
		return nil, domain.NewTransportError("build upload", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, domain.NewTransportError("read upload file", err)
	}
	if err := mw.Close(); err != nil {
		return nil, domain.NewTransportError("build upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL(), body)
	if err != nil {
		return nil, domain.NewTransportError("build upload", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	c.logger.Info("Uploading file",
		slog.String("req_id", reqID),
		slog.String("url", req.URL.String()),
		slog.String("file_name", fileName),
		slog.Int("content_length", body.Len()),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Upload request failed",
			slog.String("req_id", reqID),
			slog.String("error", err.Error()),
		)
		return nil, domain.NewTransportError("upload", err)
	}
	defer c.closeBody(reqID, resp.Body)

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Error("Failed to decode upload response",
			slog.String("req_id", reqID),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return nil, domain.NewTransportError("decode upload response", err)
	}

	c.logger.Info("Upload response",
		slog.String("req_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if parsed.Error != "" {
		return nil, &domain.UploadRejectedError{Message: parsed.Error}
	}

	if resp.StatusCode/100 != 2 {
		return nil, domain.NewTransportError("upload", fmt.Errorf("non-2xx status: %d", resp.StatusCode))
	}

	if parsed.FileID == "" {
		return nil, domain.NewTransportError("upload", fmt.Errorf("response has no file_id"))
	}

	return &UploadResult{
		FileID:  string(parsed.FileID),
		Message: parsed.Message,
	}, nil
}

// Status queries the processing status of fileID once
func (c *Client) Status(ctx context.Context, fileID string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatusURL(fileID), nil)
	if err != nil {
		return nil, domain.NewTransportError("build status query", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewTransportError("query status", err)
	}
	defer c.closeBody(fileID, resp.Body)

	if resp.StatusCode/100 != 2 {
		return nil, domain.NewTransportError("query status", fmt.Errorf("non-2xx status: %d", resp.StatusCode))
	}

	var result StatusResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, domain.NewTransportError("decode status response", err)
	}

	c.logger.Debug("Status response",
		slog.String("file_id", fileID),
		slog.String("status", result.Status),
	)

	return &result, nil
}

func (c *Client) closeBody(id string, body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warn("Failed to close response body",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
