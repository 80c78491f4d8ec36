package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// OperationRepository provides ledger persistence backed by BigQuery.
type OperationRepository interface {
	// WriteEntry inserts one dispatched ledger entry.
	WriteEntry(ctx context.Context, entry domain.LedgerEntry) error

	// ListByUser returns the newest entries of a user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)

	// EnsureTable creates the operations table if needed.
	EnsureTable(ctx context.Context) error
}

// BigQueryOperationRepository is the concrete implementation of
// OperationRepository. It holds a shared BigQuery client.
type BigQueryOperationRepository struct {
	client *bigquery.Client
	ref    TableRef
}

var _ OperationRepository = (*BigQueryOperationRepository)(nil)

// NewBigQueryOperationRepository creates a repository with a shared BigQuery client.
func NewBigQueryOperationRepository(ctx context.Context, ref TableRef) (*BigQueryOperationRepository, error) {
	if ref.ProjectID == "" || ref.Dataset == "" || ref.Table == "" {
		return nil, fmt.Errorf("NewBigQueryOperationRepository: project, dataset and table are required")
	}
	client, err := bigquery.NewClient(ctx, ref.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryOperationRepository: creating client: %w", err)
	}
	return &BigQueryOperationRepository{client: client, ref: ref}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryOperationRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// WriteEntry delegates to InsertOperationsWithClient.
func (r *BigQueryOperationRepository) WriteEntry(ctx context.Context, entry domain.LedgerEntry) error {
	return InsertOperationsWithClient(ctx, r.client, r.ref, []*OperationRow{FromEntry(entry)})
}

// ListByUser delegates to QueryOperationsByUserWithClient.
func (r *BigQueryOperationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := QueryOperationsByUserWithClient(ctx, r.client, r.ref, userID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.ToEntry()
		if err != nil {
			return nil, fmt.Errorf("ListByUser: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// EnsureTable delegates to EnsureOperationsTableWithClient.
func (r *BigQueryOperationRepository) EnsureTable(ctx context.Context) error {
	return EnsureOperationsTableWithClient(ctx, r.client, r.ref)
}
