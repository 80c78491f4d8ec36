// Package notionsync mirrors dispatched ledger entries into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-chat/internal/domain"
	"github.com/dvloznov/finance-chat/internal/logger"
)

// Sink writes one Notion page per ledger entry. A retried entry updates the
// page it created earlier instead of adding a second one.
type Sink struct {
	pages PageService
}

// NewSink creates a ledger sink on top of a PageService.
func NewSink(pages PageService) *Sink {
	return &Sink{pages: pages}
}

// WriteEntry creates or updates the page for entry.
func (s *Sink) WriteEntry(ctx context.Context, entry domain.LedgerEntry) error {
	log := logger.FromContext(ctx)
	props := EntryToNotionProperties(entry)

	existing, err := s.pages.FindPage(ctx, PropEntryID, entry.EntryID)
	if err != nil {
		return fmt.Errorf("Sink.WriteEntry: looking up %s: %w", entry.EntryID, err)
	}

	if existing != nil && extractEntryID(*existing) == entry.EntryID {
		if _, err := s.pages.UpdatePage(ctx, string(existing.ID), props); err != nil {
			return fmt.Errorf("Sink.WriteEntry: updating %s: %w", entry.EntryID, err)
		}
		log.Debug().
			Str("entry_id", entry.EntryID).
			Str("page_id", string(existing.ID)).
			Msg("Updated Notion page")
		return nil
	}

	page, err := s.pages.CreatePage(ctx, props)
	if err != nil {
		return fmt.Errorf("Sink.WriteEntry: creating %s: %w", entry.EntryID, err)
	}
	log.Debug().
		Str("entry_id", entry.EntryID).
		Str("page_id", string(page.ID)).
		Msg("Created Notion page")
	return nil
}
