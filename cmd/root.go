/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/skillbridge/apiserver/config"
	"github.com/skillbridge/apiserver/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skillbridge",
	Short: "SkillBridge course marketplace backend",
	Long: `SkillBridge serves the course marketplace REST API and ships the
maintenance commands that go with it. Usage:

	skillbridge server
	skillbridge migrate up
	skillbridge users set-role admin@example.com admin
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRuntime reads the configuration and builds the matching logger.
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg := config.LoadConfig()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}
