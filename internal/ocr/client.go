// Package ocr reaches the external text-extraction service. The service is
// treated as an opaque capability: image bytes in, raw receipt text out.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"haushalt/internal/scan"
)

// ExtractionError reports an unreadable image or a service failure. The
// workflow treats it as recoverable: back to upload, no automatic retry.
type ExtractionError struct {
	Status int // HTTP status, 0 for local failures
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("text extraction failed (status %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("text extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Client talks to the extraction service over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ scan.TextExtractor = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractText validates the image locally, sends it to the service and
// returns the extracted text. Any failure comes back as an *ExtractionError.
func (c *Client) ExtractText(ctx context.Context, img []byte) (string, error) {
	// Reject byte blobs that are not decodable images before burning a call
	if _, _, err := image.Decode(bytes.NewReader(img)); err != nil {
		return "", &ExtractionError{Reason: "unreadable image", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(img))
	if err != nil {
		return "", &ExtractionError{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ExtractionError{Reason: "service unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExtractionError{Status: resp.StatusCode, Reason: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ExtractionError{Status: resp.StatusCode, Reason: string(body)}
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ExtractionError{Status: resp.StatusCode, Reason: "malformed response", Err: err}
	}
	return parsed.Text, nil
}
