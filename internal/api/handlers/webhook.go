// Package handlers exposes the Meta webhook endpoints: the subscription
// handshake and message delivery.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saldin/whatsapp-gateway/internal/api/middleware"
	"github.com/saldin/whatsapp-gateway/internal/bot"
	"github.com/saldin/whatsapp-gateway/internal/storage"
	"github.com/saldin/whatsapp-gateway/internal/whatsapp"
)

// WebhookHandler handles webhook verification and message deliveries.
type WebhookHandler struct {
	verifyToken string
	messages    storage.MessageLog
	processor   *bot.Processor
	out         bot.Dispatcher
	log         zerolog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(verifyToken string, messages storage.MessageLog, processor *bot.Processor, out bot.Dispatcher, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		messages:    messages,
		processor:   processor,
		out:         out,
		log:         log,
	}
}

// Verify handles GET /webhook, Meta's subscription handshake: echo the
// challenge iff the mode is "subscribe" and the token matches.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.log.Info().Msg("Webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.log.Warn().Str("mode", mode).Msg("Webhook verification rejected")
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// Receive handles POST /webhook. Every reachable outcome answers 200:
// Meta retries aggressively on non-2xx, and a retried delivery must not
// duplicate financial entries. The message is logged before any
// processing so a duplicate delivery terminates on the insert conflict.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload whatsapp.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		// Malformed body: ack and drop, a retry would not parse either.
		h.log.Warn().Err(err).Msg("Undecodable webhook payload")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	msg := payload.FirstMessage()
	if msg == nil {
		// Status callbacks and other message-less deliveries.
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "no_message"})
		return
	}

	log := h.log.With().
		Str("message_id", msg.ID).
		Str("phone", msg.From).
		Str("type", msg.Type).
		Str("request_id", middleware.GetRequestID(ctx)).
		Logger()
	log.Info().Str("sender", payload.SenderName()).Msg("Message received")

	raw, _ := json.Marshal(msg)
	record := &storage.InboundMessage{
		ID:         uuid.NewString(),
		MessageID:  msg.ID,
		Phone:      msg.From,
		Kind:       storage.MessageKind(msg.Type),
		Payload:    string(raw),
		ReceivedAt: time.Now(),
	}

	if err := h.messages.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateMessage) {
			log.Info().Msg("Duplicate delivery blocked")
			middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		// Without the log row there is no dedup guarantee; stop here
		// rather than risk double-processing a later retry.
		log.Error().Err(err).Msg("Failed to log inbound message")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "log_error"})
		return
	}

	// Only after the dedup insert: a duplicate delivery makes no external
	// calls at all.
	h.out.MarkRead(ctx, msg.ID)

	result, err := h.processor.Handle(ctx, msg)
	if err != nil {
		log.Error().Err(err).Msg("Message processing failed")
		if merr := h.messages.MarkFailed(ctx, record.ID, err.Error()); merr != nil {
			log.Error().Err(merr).Msg("Failed to record processing error")
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	if merr := h.messages.MarkProcessed(ctx, record.ID, result); merr != nil {
		log.Error().Err(merr).Msg("Failed to record processing result")
	}
	log.Info().Str("result", result).Msg("Message processed")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "result": result})
}
