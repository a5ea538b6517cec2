/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillbridge/apiserver/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the SkillBridge API server",
	Long: `Starts the SkillBridge API server. Usage:

	skillbridge server
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("server error", zap.Error(err))
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
			return err
		}
		log.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
