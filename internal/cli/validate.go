package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a JSON scan report for consistency",
	Long: `Validate checks that a JSON report written by 'clawshield scan --format json'
is internally consistent: the status matches the score, the per-tier counts
match the findings, and intentional findings are reported as INFO.

Returns exit 0 if valid, exit 2 if invalid with details on stderr. Use "-" to
read the report from stdin.

Example:
  clawshield validate report.json
  clawshield scan ./my-skill --format json | clawshield validate -`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	var (
		data []byte
		err  error
	)
	if filePath == "-" {
		var in io.Reader = os.Stdin
		if cmd != nil {
			in = cmd.InOrStdin()
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	v := validator.New()
	if err := v.ValidateReport(data); err != nil {
		return err
	}

	fmt.Println("VALID: report is consistent")
	return nil
}
