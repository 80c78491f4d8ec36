package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-chat/internal/domain"
)

type mockPageService struct {
	CreatePageFunc func(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	FindPageFunc   func(ctx context.Context, property, value string) (*notionapi.Page, error)
}

func (m *mockPageService) CreatePage(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, properties)
}

func (m *mockPageService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.UpdatePageFunc(ctx, pageID, properties)
}

func (m *mockPageService) FindPage(ctx context.Context, property, value string) (*notionapi.Page, error) {
	return m.FindPageFunc(ctx, property, value)
}

func sampleEntry() domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID: "e1",
		UserID:  "u1",
		Actor:   "Anna",
		Operation: domain.CandidateOperation{
			Kind:          domain.KindTransfer,
			Amount:        domain.Amount("1500.25"),
			Currency:      "RSD",
			Account:       "CARD",
			SecondPerson:  "Ivan",
			SecondAccount: "CASH",
		},
		CreatedAt: time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestEntryToNotionProperties(t *testing.T) {
	props := EntryToNotionProperties(sampleEntry())

	title, ok := props[PropTitle].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "TRANSFER 1500.25", title.Title[0].Text.Content)

	amount, ok := props[PropAmount].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.InDelta(t, 1500.25, amount.Number, 1e-9)

	kind := props[PropKind].(notionapi.SelectProperty)
	assert.Equal(t, "TRANSFER", kind.Select.Name)

	cp := props[PropCounterparty].(notionapi.RichTextProperty)
	assert.Equal(t, "Ivan / CASH", cp.RichText[0].Text.Content)

	_, hasFund := props[PropFund]
	assert.False(t, hasFund, "empty fund must not be sent")

	corr := props[PropCompensating].(notionapi.CheckboxProperty)
	assert.False(t, corr.Checkbox)
}

func TestEntryToNotionProperties_CommentTitle(t *testing.T) {
	entry := sampleEntry()
	entry.Operation.Comment = "CANCEL: rent"
	entry.Compensating = true

	props := EntryToNotionProperties(entry)
	title := props[PropTitle].(notionapi.TitleProperty)
	assert.Equal(t, "CANCEL: rent", title.Title[0].Text.Content)
	assert.True(t, props[PropCompensating].(notionapi.CheckboxProperty).Checkbox)
}

func TestSink_CreatesPage(t *testing.T) {
	var created notionapi.Properties
	svc := &mockPageService{
		FindPageFunc: func(ctx context.Context, property, value string) (*notionapi.Page, error) {
			assert.Equal(t, PropEntryID, property)
			assert.Equal(t, "e1", value)
			return nil, nil
		},
		CreatePageFunc: func(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error) {
			created = properties
			return &notionapi.Page{ID: "page-1"}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Fatal("UpdatePage should not be called")
			return nil, nil
		},
	}

	require.NoError(t, NewSink(svc).WriteEntry(context.Background(), sampleEntry()))
	assert.NotNil(t, created)
}

func TestSink_UpdatesExistingPage(t *testing.T) {
	var updatedID string
	svc := &mockPageService{
		FindPageFunc: func(ctx context.Context, property, value string) (*notionapi.Page, error) {
			return &notionapi.Page{
				ID: "page-1",
				Properties: notionapi.Properties{
					PropEntryID: &notionapi.RichTextProperty{
						RichText: []notionapi.RichText{{PlainText: "e1"}},
					},
				},
			}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
			updatedID = pageID
			return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
		},
		CreatePageFunc: func(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Fatal("CreatePage should not be called")
			return nil, nil
		},
	}

	require.NoError(t, NewSink(svc).WriteEntry(context.Background(), sampleEntry()))
	assert.Equal(t, "page-1", updatedID)
}

func TestSink_LookupError(t *testing.T) {
	svc := &mockPageService{
		FindPageFunc: func(ctx context.Context, property, value string) (*notionapi.Page, error) {
			return nil, errors.New("rate limited")
		},
	}
	err := NewSink(svc).WriteEntry(context.Background(), sampleEntry())
	assert.ErrorContains(t, err, "rate limited")
}
