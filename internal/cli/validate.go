package cli

import (
	"github.com/spf13/cobra"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/metadata"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var schemaPath string
	var noHeal bool

	cmd := &cobra.Command{
		Use:   "validate <plan.json|->",
		Short: "Check a plan against the grammar and dry-run it against a document",
		Long: `Without --schema only the structural check runs. With --schema the plan is
also applied to a copy of the document, healed and integrity-checked; the
document on disk is never changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			v, err := newValidator()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if schemaPath == "" {
				res := v.Validate(data)
				if root.pretty {
					renderValidation(w, args[0], res)
				} else if err := writeJSON(w, res); err != nil {
					return err
				}
				if !res.Valid {
					return errFailed
				}
				return nil
			}

			base, err := metadata.LoadFile(schemaPath)
			if err != nil {
				return err
			}
			opts := engine.DefaultOptions()
			opts.HealSections = !noHeal
			out := engine.DryRun(v, base, data, opts)
			if root.pretty {
				renderOutcome(w, args[0], out)
			} else if err := writeJSON(w, out); err != nil {
				return err
			}
			if !out.Success {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema document to dry-run against (JSON or YAML)")
	cmd.Flags().BoolVar(&noHeal, "no-heal", false, "Do not create placeholder sections for dangling page refs")
	return cmd
}
