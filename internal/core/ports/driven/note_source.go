package driven

import (
	"context"

	"github.com/tessaro-systems/notesync/internal/core/domain"
)

// NoteSource retrieves note-header pages from the remote ERP.
type NoteSource interface {
	// FetchPage retrieves one page of note headers for a tenant using the
	// supplied bearer credential. Page indexes start at 0. The returned
	// page reports whether the source claims more pages exist.
	FetchPage(ctx context.Context, tenantID int64, token string, page int) (*domain.NotePage, error)
}
