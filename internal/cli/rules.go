package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/rules"
	"github.com/ppiankov/clawshield/internal/scoring"
)

var (
	rulesFormat string
	rulesPack   string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the detection rules",
	Long: `Rules lists the detection rules the scanner applies: the built-in catalog
plus the rule pack configured with rules_file. Use --pack to check a rule pack
before configuring it; the merged catalog is listed when it loads.

Example:
  clawshield rules
  clawshield rules --pack ./team-rules.yaml --format json`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesFormat, "format", "text",
		"output format: text or json")
	rulesCmd.Flags().StringVar(&rulesPack, "pack", "",
		"rule pack to validate and merge (default: rules_file from config)")
}

type ruleEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Tier        models.Severity `json:"tier"`
	Points      int             `json:"points"`
	Weight      int             `json:"weight"`
	Description string          `json:"description"`
	Pattern     string          `json:"pattern"`
}

func runRules(cmd *cobra.Command, args []string) error {
	if err := validateFormat(rulesFormat, "text", "json"); err != nil {
		return err
	}

	pack := rulesPack
	if pack == "" {
		pack = cfg.RulesFile
	}

	catalog, err := rules.Load(pack)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid rule pack: %v", err)}
	}

	entries := make([]ruleEntry, 0, catalog.Len())
	for _, r := range catalog.Rules() {
		entries = append(entries, ruleEntry{
			ID:          r.ID,
			Name:        r.Name,
			Tier:        r.Tier,
			Points:      scoring.TierWeight(r.Tier),
			Weight:      r.Weight,
			Description: r.Description,
			Pattern:     r.Pattern.String(),
		})
	}

	if rulesFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	printRulesText(os.Stdout, entries, pack)
	return nil
}

func printRulesText(w io.Writer, entries []ruleEntry, pack string) {
	_, _ = fmt.Fprintf(w, "%d rule(s)", len(entries))
	if pack != "" {
		_, _ = fmt.Fprintf(w, " (built-in + %s)", pack)
	}
	_, _ = fmt.Fprint(w, "\n\n")

	for _, tier := range models.Tiers {
		var inTier []ruleEntry
		for _, e := range entries {
			if e.Tier == tier {
				inTier = append(inTier, e)
			}
		}
		if len(inTier) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s (%d points each)\n", tier, scoring.TierWeight(tier))
		for _, e := range inTier {
			_, _ = fmt.Fprintf(w, "  %-24s %s\n", e.ID, e.Description)
		}
		_, _ = fmt.Fprintln(w)
	}
}
