package cli

import (
	"github.com/spf13/cobra"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/metadata"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <doc>",
		Short: "Check the referential integrity of a schema document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := metadata.LoadFile(args[0])
			if err != nil {
				return err
			}
			res := engine.CheckIntegrity(s)
			if root.pretty {
				renderValidation(cmd.OutOrStdout(), args[0], res)
			} else if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return errFailed
			}
			return nil
		},
	}
}
