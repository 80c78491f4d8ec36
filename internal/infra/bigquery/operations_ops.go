package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// DefaultListLimit caps QueryOperationsByUser when no limit is given.
const DefaultListLimit = 50

// TableRef names the operations table.
type TableRef struct {
	ProjectID string
	Dataset   string
	Table     string
}

// FullName returns the backtick-quoted table path for SQL.
func (t TableRef) FullName() string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.Dataset, t.Table)
}

func (t TableRef) handle(client *bigquery.Client) *bigquery.Table {
	return client.DatasetInProject(t.ProjectID, t.Dataset).Table(t.Table)
}

// EnsureOperationsTableWithClient creates the operations table if it does not exist.
func EnsureOperationsTableWithClient(ctx context.Context, client *bigquery.Client, ref TableRef) error {
	q := client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			entry_id        STRING NOT NULL,
			user_id         STRING NOT NULL,
			actor           STRING,
			kind            STRING NOT NULL,
			amount          NUMERIC,
			currency        STRING,
			account         STRING,
			fund            STRING,
			comment         STRING,
			second_person   STRING,
			second_account  STRING,
			second_currency STRING,
			compensating    BOOL,
			undo            BOOL,
			created_ts      TIMESTAMP NOT NULL
		)
		PARTITION BY DATE(created_ts)
		CLUSTER BY user_id
	`, ref.FullName()))

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("EnsureOperationsTable: running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("EnsureOperationsTable: waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("EnsureOperationsTable: job error: %w", err)
	}

	return nil
}

// InsertOperationsWithClient streams a batch of rows into the operations table.
func InsertOperationsWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, rows []*OperationRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, r := range rows {
		savers = append(savers, r.saver())
	}

	inserter := ref.handle(client).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertOperations: inserting rows: %w", err)
	}

	return nil
}

// QueryOperationsByUserWithClient returns the newest operations of one user.
func QueryOperationsByUserWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, userID string, limit int) ([]*OperationRow, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			entry_id,
			user_id,
			actor,
			kind,
			amount,
			currency,
			account,
			fund,
			comment,
			second_person,
			second_account,
			second_currency,
			compensating,
			undo,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
		LIMIT @limit
	`, ref.FullName()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryOperationsByUser: query read: %w", err)
	}

	var rows []*OperationRow
	for {
		var r OperationRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryOperationsByUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
