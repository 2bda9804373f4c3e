// Package backup uploads image copies to Graph-style drive storage with a
// simple PUT to a folder path. The backup is best-effort: the caller treats
// failures as log-and-continue, never as a request failure.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client uploads files to a remote drive folder.
type Client struct {
	client      *http.Client
	baseURL     string
	accessToken string
	folder      string
}

// Config holds the drive backup settings.
type Config struct {
	BaseURL     string
	AccessToken string
	Folder      string
	Timeout     time.Duration
}

// New creates a backup client. A client with no access token is disabled.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client:      &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		folder:      cfg.Folder,
	}
}

// Enabled reports whether the client is configured to upload.
func (c *Client) Enabled() bool {
	return c.accessToken != "" && c.baseURL != ""
}

// uploadResponse is the subset of the drive item we keep as the reference.
type uploadResponse struct {
	ID     string `json:"id"`
	WebURL string `json:"webUrl"`
}

// Upload PUTs the file content to the configured folder and returns a
// reference to the remote copy (the item's web URL, or its id when the
// response carries no URL).
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("backup is not configured")
	}

	uploadURL := fmt.Sprintf("%s/me/drive/root:/%s/%s:/content",
		c.baseURL, url.PathEscape(c.folder), url.PathEscape(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload %s: status %d: %s", filename, resp.StatusCode, body)
	}

	var item uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if item.WebURL != "" {
		return item.WebURL, nil
	}
	if item.ID == "" {
		return "", fmt.Errorf("upload response carries no item id")
	}
	return item.ID, nil
}
