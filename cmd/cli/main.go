package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger

	chatUser string
	userID   string
	limit    int

	rootCmd = &cobra.Command{
		Use:   "cli",
		Short: "Finance chat engine CLI",
		Long: `Talk to the command engine from a terminal, inspect or reset user
profiles, list dispatched ledger operations and prepare the ledger table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			log = logger.NewWithOptions(cfg.Log.Level, cfg.Log.Format, os.Stderr)
			return nil
		},
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd, profileCmd, opsCmd, migrateCmd)
	profileCmd.AddCommand(profileShowCmd, profileResetCmd)
	opsCmd.AddCommand(opsListCmd)

	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "cli-user", "user id to chat as")
	for _, c := range []*cobra.Command{profileShowCmd, profileResetCmd, opsListCmd} {
		c.Flags().StringVarP(&userID, "user", "u", "", "user id")
		c.MarkFlagRequired("user")
	}
	opsListCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of operations")
}
