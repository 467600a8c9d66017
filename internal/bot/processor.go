// Package bot orchestrates one inbound WhatsApp message end to end:
// sender resolution, content extraction, command routing and the reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/saldin/whatsapp-gateway/internal/intent"
	"github.com/saldin/whatsapp-gateway/internal/phone"
	"github.com/saldin/whatsapp-gateway/internal/storage"
	"github.com/saldin/whatsapp-gateway/internal/whatsapp"
)

// DefaultStatementLimit is how many entries the extrato reply shows.
const DefaultStatementLimit = 5

// Processor handles one message per call. It holds no per-request state,
// so a single value serves all webhook deliveries.
type Processor struct {
	directory   storage.AccountDirectory
	fin         Finance
	flow        *EditFlow
	media       MediaFetcher
	classifier  intent.TextClassifier
	vision      intent.ReceiptAnalyzer
	transcriber intent.AudioTranscriber
	out         Dispatcher
	archive     Archiver
	limit       int
	log         zerolog.Logger
}

// NewProcessor wires the pipeline. archive may be nil.
func NewProcessor(
	directory storage.AccountDirectory,
	fin Finance,
	flow *EditFlow,
	media MediaFetcher,
	classifier intent.TextClassifier,
	vision intent.ReceiptAnalyzer,
	transcriber intent.AudioTranscriber,
	out Dispatcher,
	archive Archiver,
	statementLimit int,
	log zerolog.Logger,
) *Processor {
	if statementLimit <= 0 {
		statementLimit = DefaultStatementLimit
	}
	return &Processor{
		directory:   directory,
		fin:         fin,
		flow:        flow,
		media:       media,
		classifier:  classifier,
		vision:      vision,
		transcriber: transcriber,
		out:         out,
		archive:     archive,
		limit:       statementLimit,
		log:         log,
	}
}

// Handle processes one inbound message and sends whatever reply it earns.
// The returned result is a short outcome tag recorded on the message log;
// a non-nil error means an unexpected internal fault (the user-visible
// apology, when one applies, has already been sent).
func (p *Processor) Handle(ctx context.Context, msg *whatsapp.Message) (string, error) {
	log := p.log.With().Str("message_id", msg.ID).Str("phone", msg.From).Logger()

	// Sender resolution fails closed: no verified account, no financial
	// processing.
	userID, err := p.directory.FindVerified(ctx, phone.Variants(msg.From))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn().Msg("Unverified sender")
			p.reply(ctx, msg.From, MsgLinkAccount)
			return "unverified", nil
		}
		return "", fmt.Errorf("resolve sender: %w", err)
	}
	log = log.With().Str("account_id", userID).Logger()

	text, extracted, result, done := p.extract(ctx, log, msg)
	if done {
		return result, nil
	}

	if text != "" {
		cmd := ParseCommand(text)

		// A new edit command overrides any open session rather than being
		// consumed as the next field value, so it is routed ahead of the
		// continuation check.
		if cmd.Kind == CmdEdit {
			reply, err := p.flow.Start(ctx, userID, cmd.Code)
			if err != nil {
				return "", err
			}
			p.reply(ctx, msg.From, reply)
			return "edit_start", nil
		}

		// Every other in-flow answer goes to the open session first, so
		// field values are never misclassified as commands or transactions.
		if reply, handled, err := p.flow.Continue(ctx, userID, text); err != nil {
			return "", fmt.Errorf("edit flow: %w", err)
		} else if handled {
			p.reply(ctx, msg.From, reply)
			return "edit_step", nil
		}

		switch cmd.Kind {
		case CmdDelete:
			return p.handleDelete(ctx, userID, msg.From, cmd.Code)
		case CmdBalance:
			return p.handleBalance(ctx, userID, msg.From)
		case CmdStatement:
			return p.handleStatement(ctx, userID, msg.From)
		}

		extracted, err = p.classifier.Classify(ctx, text)
		if err != nil {
			log.Error().Err(err).Msg("Intent classification failed")
			p.reply(ctx, msg.From, MsgRetryLater)
			return "classify_error", nil
		}
		log.Info().Str("kind", string(extracted.Kind)).Msg("Intent classified")
	}

	switch extracted.Kind {
	case intent.KindIncomplete:
		p.reply(ctx, msg.From, MsgIncomplete)
		return "incomplete", nil
	case intent.KindBalance:
		return p.handleBalance(ctx, userID, msg.From)
	case intent.KindStatement:
		return p.handleStatement(ctx, userID, msg.From)
	case intent.KindExpense, intent.KindIncome:
		conf, err := p.fin.Record(ctx, userID, extracted)
		if err != nil {
			log.Error().Err(err).Msg("Record failed")
			p.reply(ctx, msg.From, MsgRecordError)
			return "record_error", err
		}
		log.Info().Str("code", conf.Code).Str("direction", string(conf.Direction)).Msg("Transaction recorded")
		p.reply(ctx, msg.From, ConfirmationMessage(conf))
		return "recorded " + conf.Code, nil
	}

	// Stickers, videos, reactions: acknowledged and ignored.
	return "ignored", nil
}

// extract resolves the message into either plain text (text and audio
// messages) or a ready intent (images: vision already extracts structured
// fields, skipping the classifier). done means a terminal outcome was
// reached and the apology, if any, was sent.
func (p *Processor) extract(ctx context.Context, log zerolog.Logger, msg *whatsapp.Message) (text string, it intent.Intent, result string, done bool) {
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return "", intent.Intent{}, "ignored", true
		}
		return strings.TrimSpace(msg.Text.Body), intent.Intent{}, "", false

	case "audio":
		if msg.Audio == nil || msg.Audio.ID == "" {
			return "", intent.Intent{}, "ignored", true
		}
		data, err := p.media.Download(ctx, msg.Audio.ID)
		if err != nil {
			log.Error().Err(err).Str("media_id", msg.Audio.ID).Msg("Audio download failed")
			p.reply(ctx, msg.From, MsgAudioError)
			return "", intent.Intent{}, "audio_error", true
		}
		p.archiveMedia(ctx, log, "audio", data, msg.Audio.MimeType)

		transcript, err := p.transcriber.Transcribe(ctx, data, msg.Audio.MimeType)
		if err != nil {
			log.Error().Err(err).Str("media_id", msg.Audio.ID).Msg("Transcription failed")
			p.reply(ctx, msg.From, MsgAudioError)
			return "", intent.Intent{}, "audio_error", true
		}
		log.Info().Int("bytes", len(data)).Msg("Audio transcribed")
		return strings.TrimSpace(transcript), intent.Intent{}, "", false

	case "image":
		if msg.Image == nil || msg.Image.ID == "" {
			return "", intent.Intent{}, "ignored", true
		}
		data, err := p.media.Download(ctx, msg.Image.ID)
		if err != nil {
			log.Error().Err(err).Str("media_id", msg.Image.ID).Msg("Image download failed")
			p.reply(ctx, msg.From, MsgImageError)
			return "", intent.Intent{}, "image_error", true
		}
		p.archiveMedia(ctx, log, "image", data, msg.Image.MimeType)

		extracted, err := p.vision.AnalyzeReceipt(ctx, data, msg.Image.MimeType)
		if err != nil {
			log.Error().Err(err).Str("media_id", msg.Image.ID).Msg("Vision extraction failed")
			p.reply(ctx, msg.From, MsgImageError)
			return "", intent.Intent{}, "image_error", true
		}
		return "", extracted, "", false
	}

	return "", intent.Intent{}, "ignored", true
}

func (p *Processor) handleDelete(ctx context.Context, userID, to, code string) (string, error) {
	if err := p.fin.Delete(ctx, userID, code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			p.reply(ctx, to, MsgNotFound)
			return "delete_not_found", nil
		}
		return "", fmt.Errorf("delete %s: %w", code, err)
	}
	p.reply(ctx, to, DeletedMessage(code))
	return "deleted " + code, nil
}

func (p *Processor) handleBalance(ctx context.Context, userID, to string) (string, error) {
	balance, err := p.fin.Balance(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	p.reply(ctx, to, BalanceMessage(balance))
	return "balance", nil
}

func (p *Processor) handleStatement(ctx context.Context, userID, to string) (string, error) {
	entries, err := p.fin.LastEntries(ctx, userID, p.limit)
	if err != nil {
		return "", fmt.Errorf("statement: %w", err)
	}
	p.reply(ctx, to, StatementMessage(entries))
	return "statement", nil
}

// reply is best-effort: delivery failures are logged by the dispatcher
// and must not fail the pipeline (the webhook acks regardless).
func (p *Processor) reply(ctx context.Context, to, body string) {
	if body == "" {
		return
	}
	if err := p.out.SendText(ctx, to, body); err != nil {
		p.log.Error().Err(err).Str("to", to).Msg("Reply delivery failed")
	}
}

// archiveMedia stores a copy of the payload for audit when an archiver is
// configured. Never blocks the pipeline.
func (p *Processor) archiveMedia(ctx context.Context, log zerolog.Logger, kind string, data []byte, mimeType string) {
	if p.archive == nil {
		return
	}
	uri, err := p.archive.Archive(ctx, kind, data, mimeType)
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("Media archival failed")
		return
	}
	// An empty URI means the archiver is configured off.
	if uri == "" {
		return
	}
	log.Info().Str("kind", kind).Str("uri", uri).Msg("Media archived")
}
