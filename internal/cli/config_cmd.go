package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clawshield/internal/config"
)

var configSample bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Config prints the configuration in effect after merging defaults, the
config file and CLAWSHIELD_* environment variables. The API key is masked.

Use --sample to print a commented starting point:
  clawshield config --sample > clawshield.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configSample, "sample", false,
		"print a sample config file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configSample {
		fmt.Print(config.GenerateSampleConfig())
		return nil
	}

	effective := *cfg
	if effective.APIKey != "" {
		effective.APIKey = maskKey(effective.APIKey)
	}

	out, err := yaml.Marshal(&effective)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
