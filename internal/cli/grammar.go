package cli

import (
	"github.com/spf13/cobra"

	"corisa-backend/internal/modplan"
)

func newGrammarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grammar",
		Short: "Print the Mod Plan JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(modplan.JSONSchema())
			return err
		},
	}
}
