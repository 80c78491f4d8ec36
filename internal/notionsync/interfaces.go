package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// PageService defines the Notion operations the ledger sink needs.
// This interface enables mocking and testing of Notion operations.
type PageService interface {
	// CreatePage creates a new page in the ledger database with the given properties.
	CreatePage(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage updates an existing Notion page with the given properties.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// FindPage returns the first page whose rich text property equals value,
	// or nil when there is none.
	FindPage(ctx context.Context, property, value string) (*notionapi.Page, error)
}
