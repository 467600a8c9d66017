package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxMediaBytes caps media downloads; WhatsApp voice notes and photos are
// far below this.
const maxMediaBytes = 32 << 20

// Download retrieves the binary payload of a provider media reference via
// the two-step exchange: resolve the media ID to a short-lived URL, then
// fetch the URL. Both steps are bearer-authenticated and can fail
// independently (expired reference, network).
func (c *Client) Download(ctx context.Context, mediaID string) ([]byte, error) {
	if mediaID == "" {
		return nil, fmt.Errorf("download media: empty media ID")
	}

	mediaURL, err := c.resolveMediaURL(ctx, mediaID)
	if err != nil {
		return nil, fmt.Errorf("download media %s: resolve URL: %w", mediaID, err)
	}

	data, err := c.fetchURL(ctx, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("download media %s: fetch binary: %w", mediaID, err)
	}
	return data, nil
}

func (c *Client) resolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/%s", c.baseURL, mediaID))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("meta API status %d", resp.StatusCode)
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode media metadata: %w", err)
	}
	if body.URL == "" {
		return "", fmt.Errorf("media metadata has no URL")
	}
	return body.URL, nil
}

func (c *Client) fetchURL(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media host status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.http.Do(req)
}
