// Package cli implements the modplan command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"corisa-backend/internal/engine"
)

// errFailed marks a command whose report has already been printed and whose
// only remaining job is a non-zero exit status.
var errFailed = errors.New("command failed")

type rootOptions struct {
	pretty bool
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "modplan",
		Short: "Validate, build and apply Mod Plans against schema documents",
		Long: `modplan works on schema documents offline.

A Mod Plan is a JSON document listing operations (upsert, update, remove,
rename and the page section ref edits) to run against a schema document.
Plans are checked against the plan grammar, applied to a copy of the
document, healed and checked for referential integrity before anything is
written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Render a human-readable summary instead of JSON")

	root.AddCommand(
		newGrammarCmd(),
		newValidateCmd(opts),
		newApplyCmd(opts),
		newBuildCmd(),
		newCheckCmd(opts),
		newHashPasswordCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newValidator() (*engine.Validator, error) {
	v, err := engine.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("load plan grammar: %w", err)
	}
	return v, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
