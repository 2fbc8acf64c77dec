package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/aggregator"
	"github.com/ppiankov/clawshield/internal/collector"
	"github.com/ppiankov/clawshield/internal/discovery"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/reporter"
)

// Replaced by tests.
var lookPath = exec.LookPath

var (
	auditFormat string
	auditTop    int
)

var auditCmd = &cobra.Command{
	Use:   "audit [dir...]",
	Short: "Scan every installed skill",
	Long: `Audit discovers installed skills and scans each of them. Without
arguments it searches the standard skill locations (see 'clawshield discover');
otherwise every argument is a directory whose subdirectories are skills.

The exit code is that of the worst status found.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditFormat, "format", "text",
		"output format: text or json")
	auditCmd.Flags().IntVar(&auditTop, "top", 5,
		"number of recommendations to show")
}

func runAudit(cmd *cobra.Command, args []string) error {
	if err := validateFormat(auditFormat, "text", "json"); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	plan := discovery.New(lookPath, os.Getenv).Discover(cfg.InstallCmd, args)
	if plan.TotalSkills == 0 {
		fmt.Println("No installed skills found.")
		return nil
	}
	logVerbose("Discovered %d skill(s) in %d location(s)", plan.TotalSkills, len(plan.ExistingLocations()))

	s, err := newScanner(ScanOptions{})
	if err != nil {
		return err
	}

	c := collector.New(collector.Config{
		MaxConcurrency: cfg.Workers,
		Logger:         logger,
	}, s)
	stop := startProgress(fmt.Sprintf("Scanning %d skill(s)...", len(plan.Skills)))
	results, err := c.CollectSkills(ctx, plan.Skills)
	stop()
	if err != nil {
		return err
	}

	audit := aggregator.New().Aggregate(results)

	switch auditFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(audit); err != nil {
			return fmt.Errorf("failed to write audit: %w", err)
		}
	default:
		printAuditText(os.Stdout, audit, auditTop)
	}

	return statusResult(audit.Summary.WorstStatus)
}

func printAuditText(w io.Writer, audit *models.AuditReport, top int) {
	sum := audit.Summary
	_, _ = fmt.Fprintf(w, "Audited %d skill(s): %d scanned, %d failed\n\n",
		sum.TotalSkills, sum.ScannedSkills, sum.FailedSkills)

	for _, sk := range audit.Skills {
		if sk.Error != "" {
			_, _ = fmt.Fprintf(w, "  %-24s  %-9s  %s\n", sk.Name, "ERROR", sk.Error)
			continue
		}
		s := sk.Report.Summary
		_, _ = fmt.Fprintf(w, "  %-24s  %-9s  score %3d  issues %d\n",
			sk.Name, s.Status, s.Score, s.IssuesFound)
	}

	_, _ = fmt.Fprintf(w, "\nWorst status: %s (highest score %d, %d issue(s))\n",
		reporter.StatusBadge(sum.WorstStatus), sum.HighestScore, sum.TotalIssues)

	recs := aggregator.NewRecommendationGenerator().GetTopRecommendations(audit.Recommendations, top)
	if len(recs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "\nRecommendations:")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "  [%s] %s\n", r.Severity, r.Action)
		_, _ = fmt.Fprintf(w, "      %s\n", r.Impact)
	}
}
