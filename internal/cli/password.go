package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"corisa-backend/internal/auth"
)

// newHashPasswordCmd prints a bcrypt hash for auth.admin_password_hash.
func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password|->",
		Short: "Print the bcrypt hash to configure as auth.admin_password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := args[0]
			if password == "-" {
				data, err := readInput(cmd, "-")
				if err != nil {
					return err
				}
				password = strings.TrimRight(string(data), "\r\n")
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
