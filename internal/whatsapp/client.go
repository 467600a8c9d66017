// Package whatsapp is the Meta Cloud API client: outbound text delivery,
// read receipts and media retrieval.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saldin/whatsapp-gateway/internal/phone"
)

// DefaultBaseURL is the Graph API root for the pinned version.
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// Client talks to the Meta Graph API. It is an explicitly constructed
// value injected into every component that needs it, so tests can point
// it at a fake server.
type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	http          *http.Client
	log           zerolog.Logger
}

// NewClient creates a Client. baseURL falls back to DefaultBaseURL.
func NewClient(token, phoneNumberID, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:         token,
		phoneNumberID: phoneNumberID,
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: 30 * time.Second},
		log:           log,
	}
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

// SendText delivers body to the recipient. When the number's local-part
// length is ambiguous it also sends to the ninth-digit alternate form
// (sandbox numbers are registered inconsistently); the attempts are
// independent and a failure on one never blocks the other. Markdown
// emphasis characters are stripped since the channel does not reliably
// render them.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	body = stripMarkdown(body)

	targets := phone.Variants(to)
	if len(targets) == 0 {
		return fmt.Errorf("send text: no usable recipient in %q", to)
	}

	var lastErr error
	delivered := false
	for _, target := range targets {
		if err := c.sendTextTo(ctx, target, body); err != nil {
			c.log.Error().Err(err).Str("to", target).Msg("WhatsApp send failed")
			lastErr = err
			continue
		}
		delivered = true
	}
	if !delivered {
		return fmt.Errorf("send text: all targets failed: %w", lastErr)
	}
	return nil
}

func (c *Client) sendTextTo(ctx context.Context, to, body string) error {
	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             sendText{Body: body},
	}

	resp, err := c.post(ctx, fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("meta API status %d: %s", resp.StatusCode, data)
	}
	return nil
}

type markReadRequest struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

// MarkRead flags the inbound message as read. Best-effort: errors are
// logged and swallowed so a receipt never blocks message handling.
func (c *Client) MarkRead(ctx context.Context, messageID string) {
	payload := markReadRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}

	resp, err := c.post(ctx, fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID), payload)
	if err != nil {
		c.log.Warn().Err(err).Str("message_id", messageID).Msg("Mark read failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Str("message_id", messageID).Msg("Mark read rejected")
	}
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}

func stripMarkdown(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '_', '~', '`':
			return -1
		}
		return r
	}, s)
}
