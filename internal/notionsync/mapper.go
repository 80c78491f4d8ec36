package notionsync

import (
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// Property names of the ledger database.
const (
	PropTitle        = "Description"
	PropEntryID      = "Entry ID"
	PropUser         = "User"
	PropActor        = "Actor"
	PropKind         = "Kind"
	PropAmount       = "Amount"
	PropCurrency     = "Currency"
	PropAccount      = "Account"
	PropFund         = "Fund"
	PropCounterparty = "Counterparty"
	PropCompensating = "Is Correction"
	PropUndo         = "Is Undo"
	PropDate         = "Date"
)

// EntryToNotionProperties converts a ledger entry to Notion properties.
func EntryToNotionProperties(entry domain.LedgerEntry) notionapi.Properties {
	op := entry.Operation

	props := notionapi.Properties{
		PropTitle:   notionapi.TitleProperty{Title: richText(entryTitle(entry))},
		PropEntryID: notionapi.RichTextProperty{RichText: richText(entry.EntryID)},
		PropUser:    notionapi.RichTextProperty{RichText: richText(entry.UserID)},
		PropKind:    notionapi.SelectProperty{Select: notionapi.Option{Name: string(op.Kind)}},
		PropAmount: notionapi.NumberProperty{
			Number: op.AmountOrZero().InexactFloat64(),
		},
		PropCompensating: notionapi.CheckboxProperty{Checkbox: entry.Compensating},
		PropUndo:         notionapi.CheckboxProperty{Checkbox: entry.Undo},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					ts := entry.CreatedAt
					if ts.IsZero() {
						ts = time.Now().UTC()
					}
					d := notionapi.Date(ts)
					return &d
				}(),
			},
		},
	}

	if entry.Actor != "" {
		props[PropActor] = notionapi.RichTextProperty{RichText: richText(entry.Actor)}
	}
	if op.Currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{Select: notionapi.Option{Name: op.Currency}}
	}
	if op.Account != "" {
		props[PropAccount] = notionapi.SelectProperty{Select: notionapi.Option{Name: op.Account}}
	}
	if op.Fund != "" {
		props[PropFund] = notionapi.SelectProperty{Select: notionapi.Option{Name: op.Fund}}
	}

	// Transfers
	if cp := counterparty(op); cp != "" {
		props[PropCounterparty] = notionapi.RichTextProperty{RichText: richText(cp)}
	}

	return props
}

func entryTitle(entry domain.LedgerEntry) string {
	if entry.Operation.Comment != "" {
		return entry.Operation.Comment
	}
	return fmt.Sprintf("%s %s", entry.Operation.Kind, entry.Operation.AmountOrZero().String())
}

func counterparty(op domain.CandidateOperation) string {
	if op.SecondPerson == "" && op.SecondAccount == "" {
		return ""
	}
	cp := op.SecondPerson
	if op.SecondAccount != "" {
		if cp != "" {
			cp += " / "
		}
		cp += op.SecondAccount
	}
	if op.SecondCurrency != "" {
		cp += " (" + op.SecondCurrency + ")"
	}
	return cp
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// extractEntryID reads the entry id back from a page returned by a query.
// Returns empty string if not found.
func extractEntryID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropEntryID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
