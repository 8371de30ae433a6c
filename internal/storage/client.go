package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ms-reservations/internal/logger"
)

// Client talks to a Supabase-style storage REST API. Objects are addressed as
// {url}/object/{bucket}/{path} and served publicly from
// {url}/object/public/{bucket}/{path}.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	http       *http.Client
	log        *logger.Logger
}

func NewClient(baseURL, serviceKey, bucket string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		http:       httpClient,
		log:        log,
	}
}

// Upload writes an object, overwriting any existing one at the same path. The
// upsert header makes re-provisioning idempotent.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	uploadURL := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("storage rejected upload of %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	c.log.LogStorage("UPLOAD", path, fmt.Sprintf("%d bytes uploaded", len(data)))
	return nil
}

// PublicURL resolves the stable public URL for an object path.
func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, path)
}

// Remove deletes an object. Used as compensating cleanup when a reservation
// insert fails after its QR image was already uploaded.
func (c *Client) Remove(ctx context.Context, path string) error {
	deleteURL := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storage delete error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || (resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound) {
		return fmt.Errorf("storage rejected delete of %s: status %d", path, resp.StatusCode)
	}

	c.log.LogStorage("DELETE", path, "object removed")
	return nil
}
