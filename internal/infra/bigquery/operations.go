package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// numericScale is the fractional precision of a BigQuery NUMERIC column.
const numericScale = 9

// OperationRow is one dispatched ledger entry in the operations table.
type OperationRow struct {
	EntryID string `bigquery:"entry_id"` // REQUIRED
	UserID  string `bigquery:"user_id"`  // REQUIRED
	Actor   string `bigquery:"actor"`    // NULLABLE

	Kind     string              `bigquery:"kind"`     // REQUIRED
	Amount   *big.Rat            `bigquery:"amount"`   // NULLABLE NUMERIC
	Currency bigquery.NullString `bigquery:"currency"` // NULLABLE
	Account  bigquery.NullString `bigquery:"account"`  // NULLABLE
	Fund     bigquery.NullString `bigquery:"fund"`     // NULLABLE
	Comment  bigquery.NullString `bigquery:"comment"`  // NULLABLE

	SecondPerson   bigquery.NullString `bigquery:"second_person"`   // NULLABLE
	SecondAccount  bigquery.NullString `bigquery:"second_account"`  // NULLABLE
	SecondCurrency bigquery.NullString `bigquery:"second_currency"` // NULLABLE

	Compensating bool `bigquery:"compensating"`
	Undo         bool `bigquery:"undo"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// FromEntry maps a ledger entry onto a table row.
func FromEntry(entry domain.LedgerEntry) *OperationRow {
	op := entry.Operation
	row := &OperationRow{
		EntryID:        entry.EntryID,
		UserID:         entry.UserID,
		Actor:          entry.Actor,
		Kind:           string(op.Kind),
		Currency:       nullString(op.Currency),
		Account:        nullString(op.Account),
		Fund:           nullString(op.Fund),
		Comment:        nullString(op.Comment),
		SecondPerson:   nullString(op.SecondPerson),
		SecondAccount:  nullString(op.SecondAccount),
		SecondCurrency: nullString(op.SecondCurrency),
		Compensating:   entry.Compensating,
		Undo:           entry.Undo,
		CreatedTS:      entry.CreatedAt,
	}
	if op.Amount != nil {
		row.Amount = op.Amount.Rat()
	}
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now().UTC()
	}
	return row
}

// ToEntry maps a row read back from the table onto a ledger entry.
func (r *OperationRow) ToEntry() (domain.LedgerEntry, error) {
	op := domain.CandidateOperation{
		Kind:           domain.ParseOperationKind(r.Kind),
		Currency:       r.Currency.StringVal,
		Account:        r.Account.StringVal,
		Fund:           r.Fund.StringVal,
		Comment:        r.Comment.StringVal,
		SecondPerson:   r.SecondPerson.StringVal,
		SecondAccount:  r.SecondAccount.StringVal,
		SecondCurrency: r.SecondCurrency.StringVal,
		Understood:     true,
	}
	if r.Amount != nil {
		d, err := decimal.NewFromString(r.Amount.FloatString(numericScale))
		if err != nil {
			return domain.LedgerEntry{}, fmt.Errorf("ToEntry: amount of %s: %w", r.EntryID, err)
		}
		op.Amount = &d
	}
	return domain.LedgerEntry{
		EntryID:      r.EntryID,
		UserID:       r.UserID,
		Actor:        r.Actor,
		Operation:    op,
		Compensating: r.Compensating,
		Undo:         r.Undo,
		CreatedAt:    r.CreatedTS,
	}, nil
}

// saver attaches the entry id as the streaming insert id so that a retried
// dispatch job does not produce a duplicate row.
func (r *OperationRow) saver() *bigquery.StructSaver {
	return &bigquery.StructSaver{Struct: r, InsertID: r.EntryID}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
