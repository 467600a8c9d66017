package bot

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/saldin/whatsapp-gateway/internal/finance"
	"github.com/saldin/whatsapp-gateway/internal/intent"
	"github.com/saldin/whatsapp-gateway/internal/storage"
)

// Finance is the slice of the transaction service the bot consumes.
// Declared here so tests can substitute a fake.
type Finance interface {
	Record(ctx context.Context, userID string, it intent.Intent) (*finance.Confirmation, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	LastEntries(ctx context.Context, userID string, limit int) ([]storage.LedgerEntry, error)
	FindByCode(ctx context.Context, userID, code string) (*storage.LedgerEntry, error)
	Delete(ctx context.Context, userID, code string) error
	ApplyEdit(ctx context.Context, userID, code string, amount decimal.Decimal, description, categoryName string) (*finance.Confirmation, error)
}

// Dispatcher delivers outbound text and read receipts to the provider.
type Dispatcher interface {
	SendText(ctx context.Context, to, body string) error
	MarkRead(ctx context.Context, messageID string)
}

// MediaFetcher retrieves the binary payload of a provider media reference.
type MediaFetcher interface {
	Download(ctx context.Context, mediaID string) ([]byte, error)
}

// Archiver stores a copy of fetched media for audit. Implementations must
// be safe to skip: archival failures never block the pipeline.
type Archiver interface {
	Archive(ctx context.Context, kind string, data []byte, mimeType string) (string, error)
}
