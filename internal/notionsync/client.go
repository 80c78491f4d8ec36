package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// NotionClient is the concrete implementation of PageService using the Notion SDK.
// It is bound to one database.
type NotionClient struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
}

var _ PageService = (*NotionClient)(nil)

// NewNotionClient creates a new NotionClient with the provided API token.
func NewNotionClient(token, databaseID string) *NotionClient {
	return &NotionClient{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

// CreatePage creates a new page in the bound database.
func (n *NotionClient) CreatePage(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: n.databaseID,
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}

	return page, nil
}

// UpdatePage overwrites the given properties of an existing page.
func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageUpdateRequest{
		Properties: properties,
	}

	page, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, fmt.Errorf("UpdatePage: %w", err)
	}

	return page, nil
}

// FindPage queries the bound database for a rich text property match.
func (n *NotionClient) FindPage(ctx context.Context, property, value string) (*notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{Equals: value},
		},
		PageSize: 1,
	}

	resp, err := n.client.Database.Query(ctx, n.databaseID, req)
	if err != nil {
		return nil, fmt.Errorf("FindPage: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
