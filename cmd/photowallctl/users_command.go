package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anonto42/photowall/backend/internal/models"
	"github.com/anonto42/photowall/backend/internal/repositories"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user roles",
	}

	usersCmd.AddCommand(newSetRoleCommand(ctx, "promote", "Grant the moderator role", models.RoleModerator))
	usersCmd.AddCommand(newSetRoleCommand(ctx, "demote", "Return a moderator to a regular member", models.RoleMember))

	return usersCmd
}

func newSetRoleCommand(ctx *commandContext, use, short, role string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.ToLower(strings.TrimSpace(args[0]))
			if email == "" {
				return errors.New("email is required")
			}

			users, closeFn, err := ctx.openUsers(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := users.SetRole(email, role)
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
}
