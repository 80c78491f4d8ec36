package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-chat/internal/app"
	"github.com/dvloznov/finance-chat/internal/domain"
	infraBQ "github.com/dvloznov/finance-chat/internal/infra/bigquery"
	"github.com/dvloznov/finance-chat/internal/logger"
	"github.com/dvloznov/finance-chat/internal/store"
)

var (
	chatCmd = &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send a message, or start an interactive session when none is given",
		RunE:  runChat,
	}

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Inspect or reset user profiles",
	}
	profileShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print a user profile as JSON",
		RunE:  runProfileShow,
	}
	profileResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Delete a user profile",
		RunE:  runProfileReset,
	}

	opsCmd = &cobra.Command{
		Use:   "ops",
		Short: "Inspect dispatched ledger operations",
	}
	opsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List a user's most recent operations from BigQuery",
		RunE:  runOpsList,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the BigQuery operations table if it does not exist",
		RunE:  runMigrate,
	}
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx := logger.WithContext(cmd.Context(), log)

	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := engine.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := engine.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping engine")
		}
	}()

	send := func(message string) error {
		resp, err := engine.Orchestrator.Process(ctx, domain.ChatRequest{
			ChatID:  chatUser,
			UserID:  chatUser,
			Message: message,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return nil
	}

	if len(args) > 0 {
		return send(strings.Join(args, " "))
	}
	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), send)
}

// chatLoop reads one message per line until EOF, "exit" or cancellation.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, send func(string) error) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "exit", "quit":
			return nil
		default:
			if err := send(line); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	profiles, err := store.New(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer profiles.Close()

	profile, err := profiles.Get(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}

func runProfileReset(cmd *cobra.Command, args []string) error {
	profiles, err := store.New(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer profiles.Close()

	if err := profiles.Delete(cmd.Context(), userID); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile %s deleted.\n", userID)
	return nil
}

func operationRepository(ctx context.Context) (*infraBQ.BigQueryOperationRepository, error) {
	return infraBQ.NewBigQueryOperationRepository(ctx, infraBQ.TableRef{
		ProjectID: cfg.Ledger.ProjectID,
		Dataset:   cfg.Ledger.Dataset,
		Table:     cfg.Ledger.Table,
	})
}

func runOpsList(cmd *cobra.Command, args []string) error {
	repo, err := operationRepository(cmd.Context())
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := repo.ListByUser(cmd.Context(), userID, limit)
	if err != nil {
		return fmt.Errorf("listing operations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No operations found.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(out, formatEntry(e))
	}
	return nil
}

func formatEntry(e domain.LedgerEntry) string {
	op := e.Operation
	var flags []string
	if e.Compensating {
		flags = append(flags, "compensating")
	}
	if e.Undo {
		flags = append(flags, "undo")
	}

	line := fmt.Sprintf("%s  %-8s %10s %-3s  %s / %s  %s",
		e.CreatedAt.Format("2006-01-02 15:04"), op.Kind, op.AmountOrZero().StringFixed(2),
		op.Currency, op.Account, op.Fund, op.Comment)
	if len(flags) > 0 {
		line += "  [" + strings.Join(flags, ",") + "]"
	}
	return line
}

func runMigrate(cmd *cobra.Command, args []string) error {
	repo, err := operationRepository(cmd.Context())
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureTable(cmd.Context()); err != nil {
		return fmt.Errorf("ensuring operations table: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Table %s is ready.\n", infraBQ.TableRef{
		ProjectID: cfg.Ledger.ProjectID,
		Dataset:   cfg.Ledger.Dataset,
		Table:     cfg.Ledger.Table,
	}.FullName())
	return nil
}
