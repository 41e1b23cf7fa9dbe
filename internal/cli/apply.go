package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"corisa-backend/internal/engine"
	"corisa-backend/internal/metadata"
)

func newApplyCmd(root *rootOptions) *cobra.Command {
	var (
		schemaPath string
		outPath    string
		noHeal     bool
		maxOps     int
	)

	cmd := &cobra.Command{
		Use:   "apply <plan.json|-> --schema <doc>",
		Short: "Apply a plan to a schema document and write the result",
		Long: `Runs the full commit pipeline. On success the new document is written to
--output (or back over --schema when --output is omitted), encoded by file
extension. On failure nothing is written and the exit status is 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			base, err := metadata.LoadFile(schemaPath)
			if err != nil {
				return err
			}
			v, err := newValidator()
			if err != nil {
				return err
			}

			opts := engine.Options{HealSections: !noHeal, MaxOperations: maxOps}
			out := engine.Commit(v, base, data, opts)
			w := cmd.OutOrStdout()
			if root.pretty {
				renderOutcome(w, args[0], out)
			} else if err := writeJSON(w, out); err != nil {
				return err
			}
			if !out.Success {
				return errFailed
			}

			target := outPath
			if target == "" {
				target = schemaPath
			}
			if err := metadata.WriteFile(target, out.Schema); err != nil {
				return err
			}
			if root.pretty {
				fmt.Fprintf(w, "  %s %s\n", muted.Render("wrote"), accent.Render(target))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema document to apply the plan to (JSON or YAML)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Where to write the new document (defaults to --schema)")
	cmd.Flags().BoolVar(&noHeal, "no-heal", false, "Do not create placeholder sections for dangling page refs")
	cmd.Flags().IntVar(&maxOps, "max-operations", engine.DefaultOptions().MaxOperations, "Reject plans with more operations (0 for no limit)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
