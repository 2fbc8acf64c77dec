package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/discovery"
)

var (
	discoverFormat string
)

var discoverCmd = &cobra.Command{
	Use:   "discover [dir...]",
	Short: "Detect the skill installer and installed skills",
	Long: `Discover probes the local environment to find the configured skill
installer (in PATH) and the directories that hold installed skills, and lists
the skills 'clawshield audit' would scan.

This is a read-only operation: nothing is scanned and no network calls are
made.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverFormat, "format", "text",
		"output format: text or json")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	d := discovery.New(lookPath, os.Getenv)
	plan := d.Discover(cfg.InstallCmd, args)

	switch discoverFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "text":
		printDiscoveryText(os.Stdout, plan)
		return nil
	default:
		return &ValidationError{Message: fmt.Sprintf("invalid format: %s (must be text or json)", discoverFormat)}
	}
}

func printDiscoveryText(w io.Writer, plan *discovery.DiscoveryPlan) {
	inst := plan.Installer
	switch {
	case inst.Binary == "":
		_, _ = fmt.Fprintln(w, "Installer: not configured (set install_cmd)")
	case inst.Available:
		_, _ = fmt.Fprintf(w, "Installer: %-14s  ✓ %s\n", inst.Binary, inst.Path)
	default:
		_, _ = fmt.Fprintf(w, "Installer: %-14s  ✗ not found in PATH\n", inst.Binary)
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "Discovered %d skill(s)\n\n", plan.TotalSkills)

	for _, loc := range plan.Locations {
		status := "✗ missing"
		if loc.Exists {
			status = fmt.Sprintf("✓ %d skill(s)", loc.Skills)
		}
		_, _ = fmt.Fprintf(w, "  %-10s  %s\n", loc.Name, status)
		_, _ = fmt.Fprintf(w, "              path: %s\n", loc.Path)

		for _, sk := range plan.Skills {
			if sk.Location == loc.Name && filepath.Dir(sk.Path) == loc.Path {
				_, _ = fmt.Fprintf(w, "              - %s\n", sk.Name)
			}
		}
		_, _ = fmt.Fprintln(w)
	}

	if plan.TotalSkills == 0 {
		_, _ = fmt.Fprintln(w, "No installed skills found. Set CLAWSHIELD_SKILLS_DIR or pass a directory.")
	}
}
