/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/internal/db"
	"github.com/skillbridge/apiserver/internal/services"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// usersCmd groups account maintenance commands.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role <email> <role>",
	Short: "Change the role of an account",
	Long: `Change the role of an account. This is how the first admin is created:

	skillbridge users set-role admin@example.com admin
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client, database, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		users := services.NewUserService(store.NewUserRepository(database), authz.Policy{Strict: cfg.StrictAuthz}, log)
		user, err := users.SetRole(ctx, args[0], types.Role(args[1]))
		if err != nil {
			return err
		}

		log.Info("role updated", zap.String("user_id", user.ID.Hex()), zap.String("email", user.Email), zap.String("role", string(user.Role)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
}
