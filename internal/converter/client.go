package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aasx-facility-backend/config"
)

// ErrNotConfigured is returned when no converter URL is set.
var ErrNotConfigured = errors.New("converter: url not configured")

// StatusError is a non-2xx answer from the converter.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("converter returned status %d: %s", e.StatusCode, e.Body)
}

// Client calls the external AAS/AASX converter.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a converter client from configuration.
func NewClient(cfg *config.ConverterConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type aasRequest struct {
	Path     string `json:"path"`
	LinkName string `json:"linkName,omitempty"`
}

type deleteRequest struct {
	Paths []string `json:"paths"`
}

// CreateAAS converts the JSON file at path into an AAS file.
func (c *Client) CreateAAS(ctx context.Context, path, linkName string) error {
	return c.do(ctx, http.MethodPost, "/api/aas", aasRequest{Path: path, LinkName: linkName})
}

// CreateAASX packages the AAS file at path into an AASX archive.
func (c *Client) CreateAASX(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodPost, "/api/aasx", aasRequest{Path: path})
}

// DeleteFiles removes previously produced files.
func (c *Client) DeleteFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/api/aas", deleteRequest{Paths: paths})
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
