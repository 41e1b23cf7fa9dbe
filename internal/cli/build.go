package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"corisa-backend/internal/modplan"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <modifications.json|->",
		Short: "Turn a modifications document into a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var mods modplan.Modifications
			if err := json.Unmarshal(data, &mods); err != nil {
				return fmt.Errorf("decode modifications: %w", err)
			}
			plan, err := modplan.Build(&mods)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
}
