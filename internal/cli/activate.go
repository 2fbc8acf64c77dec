package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/api"
	"github.com/ppiankov/clawshield/internal/config"
)

var (
	activateFormat   string
	activateEndpoint string
)

var activateCmd = &cobra.Command{
	Use:   "activate <api-key>",
	Short: "Store an API key for cloud reporting",
	Long: `Activate checks the API key format and writes it, with cloud reporting
enabled, to your config file. Other settings in the file are kept.

After activation, 'clawshield scan' submits anonymized results to the
configured endpoint. No network call is made here.

Example:
  clawshield activate sk_abc123def456 --endpoint https://example.invalid/scan-report`,
	Args: cobra.ExactArgs(1),
	RunE: runActivate,
}

func init() {
	activateCmd.Flags().StringVar(&activateFormat, "format", "text",
		"output format: text or json")
	activateCmd.Flags().StringVar(&activateEndpoint, "endpoint", "",
		"cloud endpoint URL (default: keep the configured endpoint)")
}

// maskKey masks an API key for safe display: sk_abc1...f456
func maskKey(key string) string {
	if len(key) < 12 {
		return "****"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func runActivate(cmd *cobra.Command, args []string) error {
	key := args[0]

	if err := validateFormat(activateFormat, "text", "json"); err != nil {
		return err
	}

	if err := api.ValidateAPIKey(key); err != nil {
		return activateFailed(&ValidationError{Message: fmt.Sprintf("invalid API key: %v", err)})
	}

	endpoint := activateEndpoint
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}
	if endpoint != "" {
		if err := api.ValidateEndpoint(endpoint); err != nil {
			return activateFailed(&ValidationError{Message: fmt.Sprintf("invalid endpoint: %v", err)})
		}
	}

	configPath := config.ConfigPath()
	if configFile != "" {
		configPath = configFile
	}

	if err := config.WriteActivation(key, endpoint, configPath); err != nil {
		return activateFailed(fmt.Errorf("failed to write config: %w", err))
	}

	if activateFormat == "json" {
		writeActivateJSON(os.Stdout, activateResult{
			Status:     "activated",
			Key:        maskKey(key),
			Endpoint:   endpoint,
			ConfigPath: configPath,
		})
		return nil
	}

	fmt.Printf("API key %s activated.\n", maskKey(key))
	if endpoint == "" {
		fmt.Println("No endpoint configured; set one with --endpoint or CLAWSHIELD_ENDPOINT.")
	} else {
		fmt.Printf("Scans will be reported to %s\n", endpoint)
	}
	fmt.Printf("Config written to %s\n", configPath)
	return nil
}

// activateFailed reports err in JSON mode before returning it.
func activateFailed(err error) error {
	if activateFormat == "json" {
		writeActivateJSON(os.Stdout, activateResult{Status: "error", Error: err.Error()})
	}
	return err
}

type activateResult struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Key        string `json:"key,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
	ConfigPath string `json:"config_path,omitempty"`
}

func writeActivateJSON(w io.Writer, result activateResult) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
