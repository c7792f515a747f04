package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"telegram-phone-checker/internal/app"
	"telegram-phone-checker/internal/config"
	"telegram-phone-checker/internal/logging"
	"telegram-phone-checker/internal/services"
)

var unlockUser string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read the lock and today's usage from the key-value table",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := loadStatusService(cmd.Context())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		current, err := status.GetStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to read status: %w", err)
		}

		out, err := json.MarshalIndent(current, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release the system lock",
	Long:  "Release the system lock. With --user only that user's lock is released.",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := loadStatusService(cmd.Context())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if err := status.ReleaseLock(ctx, unlockUser); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "system unlocked")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{statusCmd, unlockCmd} {
		cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
		rootCmd.AddCommand(cmd)
	}
	unlockCmd.Flags().StringVar(&unlockUser, "user", "", "only release the lock if this user holds it")
}

func loadStatusService(ctx context.Context) (*services.StatusService, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	a, err := app.New(ctx, logging.FormatText)
	if err != nil {
		return nil, err
	}
	return a.StatusService()
}

func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	if !fileExists(envFile) {
		return nil
	}
	return config.LoadEnvFile(envFile)
}
