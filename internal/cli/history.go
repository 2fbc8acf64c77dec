package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/aggregator"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/storage"
	"github.com/ppiankov/clawshield/internal/tui"
)

var (
	historyLast   int
	historySkill  string
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history [skill]",
	Short: "List stored scans and score trends",
	Long: `History lists scans recorded with 'clawshield scan --store', oldest
first. With a skill name it also shows the score trend of that skill.

Example:
  clawshield history
  clawshield history weather-skill --last 20
  clawshield history --skill weather-skill --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLast, "last", "n", 10,
		"number of recent scans to show")
	historyCmd.Flags().StringVar(&historySkill, "skill", "",
		"only show scans of this skill")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text",
		"output format: text or json")
}

// historyEntry is one stored scan in history output.
type historyEntry struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Skill     string `json:"skill"`
	Status    string `json:"status"`
	Score     int    `json:"score"`
	Issues    int    `json:"issues"`
}

type historyResult struct {
	Scans []historyEntry       `json:"scans"`
	Trend *models.TrendSummary `json:"trend,omitempty"`
}

// openStore opens the scan history configured for this run.
func openStore() (*storage.LocalStorage, error) {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return nil, err
	}
	return storage.NewLocal(storagePath), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := validateFormat(historyFormat, "text", "json"); err != nil {
		return err
	}

	skill := historySkill
	if len(args) == 1 {
		skill = args[0]
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	scans, err := store.GetLastNRuns(historyLast, skill)
	if err != nil {
		if skill != "" {
			return noScansError(skill, err)
		}
		fmt.Println("No stored scans found. Run 'clawshield scan --store' first.")
		return nil
	}

	result := historyResult{Scans: make([]historyEntry, 0, len(scans))}
	for _, s := range scans {
		result.Scans = append(result.Scans, historyEntry{
			ID:        s.ID,
			Timestamp: formatScanTime(s),
			Skill:     s.Skill,
			Status:    string(s.Summary.Status),
			Score:     s.Summary.Score,
			Issues:    s.Summary.IssuesFound,
		})
	}

	if skill != "" {
		result.Trend = aggregator.NewTrendAnalyzer().AnalyzeHistory(scans)
	}

	if historyFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printHistoryText(os.Stdout, result)
	return nil
}

func printHistoryText(w io.Writer, result historyResult) {
	_, _ = fmt.Fprintf(w, "%-19s  %-24s  %-8s  %5s  %6s\n", "TIMESTAMP", "SKILL", "STATUS", "SCORE", "ISSUES")
	for _, e := range result.Scans {
		_, _ = fmt.Fprintf(w, "%-19s  %-24s  %-8s  %5d  %6d\n", e.Timestamp, e.Skill, e.Status, e.Score, e.Issues)
	}

	trend := result.Trend
	if trend == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "\nTrend: %s %s over %d scan(s) (%s)\n",
		trend.Direction, aggregator.GetTrendIndicator(trend.Direction), trend.RunsAnalyzed, trend.TimeRange)
	_, _ = fmt.Fprintf(w, "Scores: %s\n", tui.Sparkline(trend.ScoreSparkline))
}
