package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/api"
	"github.com/ppiankov/clawshield/internal/config"
	"github.com/ppiankov/clawshield/internal/discovery"
	"github.com/ppiankov/clawshield/internal/policy"
	"github.com/ppiankov/clawshield/internal/rules"
)

var doctorFormat string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your ClawShield setup without making network calls:

  1. Config file: found and readable?
  2. Privilege: running as root, and is root safety mode on?
  3. Installer: is the install command in PATH?
  4. Skills: which skill directories exist?
  5. Rules and policy: do the rule pack and policy file load?
  6. Cloud: is reporting fully configured?
  7. Storage and quarantine: are the directories writable?

Fix the issues it reports, then run 'clawshield install' with confidence.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if err := validateFormat(doctorFormat, "text", "json"); err != nil {
		return err
	}

	var checks []doctorCheck

	// 1. Config file
	checks = append(checks, checkConfig())

	// 2. Privilege
	checks = append(checks, checkPrivilege())

	// 3-4. Installer and skill locations
	plan := discovery.New(lookPath, os.Getenv).Discover(cfg.InstallCmd, nil)
	checks = append(checks, checkInstaller(plan), checkSkills(plan))

	// 5. Rules and policy
	checks = append(checks, checkRules(), checkPolicy())

	// 6. Cloud reporting
	checks = append(checks, checkCloud())

	// 7. Writable directories
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		checks = append(checks, doctorCheck{Name: "storage", Status: "fail", Detail: err.Error()})
	} else {
		checks = append(checks, checkWritableDir("storage", storagePath, "will be created on first --store"))
	}
	checks = append(checks, checkWritableDir("quarantine", cfg.GetQuarantineDir(), "will be created on first install"))

	// Build summary
	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	summary := "all checks passed"
	if fails > 0 {
		summary = fmt.Sprintf("%d issue(s) found", fails)
	} else if warns > 0 {
		summary = fmt.Sprintf("ok with %d warning(s)", warns)
	}

	result := doctorResult{Checks: checks, Summary: summary}

	if doctorFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	writeDoctorText(os.Stdout, result)
	return nil
}

func writeDoctorText(w io.Writer, result doctorResult) {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			_, _ = fmt.Fprintf(w, "  %s %-12s %s\n", icon, c.Name, c.Detail)
		} else {
			_, _ = fmt.Fprintf(w, "  %s %s\n", icon, c.Name)
		}
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", result.Summary)
}

func checkConfig() doctorCheck {
	path := configFile
	if path == "" {
		for _, candidate := range []string{"clawshield.yaml", config.ConfigPath()} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path == "" {
		return doctorCheck{
			Name:   "config",
			Status: "warn",
			Detail: "no config file found (using defaults). Run: clawshield config --sample > clawshield.yaml",
		}
	}
	if _, err := os.Stat(path); err != nil {
		return doctorCheck{Name: "config", Status: "fail", Detail: fmt.Sprintf("%s: %v", path, err)}
	}

	return doctorCheck{
		Name:   "config",
		Status: "ok",
		Detail: path,
	}
}

func checkPrivilege() doctorCheck {
	if !isElevated() {
		return doctorCheck{Name: "privilege", Status: "ok", Detail: "running as a regular user"}
	}
	if !cfg.RootSafetyMode {
		return doctorCheck{
			Name:   "privilege",
			Status: "warn",
			Detail: "running as root with root_safety_mode disabled",
		}
	}
	return doctorCheck{
		Name:   "privilege",
		Status: "warn",
		Detail: "running as root: scores ×1.5, statuses escalate, install needs --force",
	}
}

func checkInstaller(plan *discovery.DiscoveryPlan) doctorCheck {
	inst := plan.Installer
	switch {
	case inst.Binary == "":
		return doctorCheck{Name: "installer", Status: "fail", Detail: "install_cmd is empty"}
	case !inst.Available:
		return doctorCheck{
			Name:   "installer",
			Status: "warn",
			Detail: fmt.Sprintf("%s not found in PATH (install will scan but cannot install)", inst.Binary),
		}
	default:
		return doctorCheck{Name: "installer", Status: "ok", Detail: inst.Path}
	}
}

func checkSkills(plan *discovery.DiscoveryPlan) doctorCheck {
	existing := plan.ExistingLocations()
	if len(existing) == 0 {
		return doctorCheck{
			Name:   "skills",
			Status: "warn",
			Detail: "no skill directories found. Set CLAWSHIELD_SKILLS_DIR to audit installed skills",
		}
	}

	var names []string
	for _, l := range existing {
		names = append(names, l.Path)
	}
	return doctorCheck{
		Name:   "skills",
		Status: "ok",
		Detail: fmt.Sprintf("%d skill(s) in %s", plan.TotalSkills, joinMax(names, 2)),
	}
}

func checkRules() doctorCheck {
	catalog, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return doctorCheck{Name: "rules", Status: "fail", Detail: err.Error()}
	}
	detail := fmt.Sprintf("%d built-in rules", catalog.Len())
	if cfg.RulesFile != "" {
		detail = fmt.Sprintf("%d rules (with %s)", catalog.Len(), cfg.RulesFile)
	}
	return doctorCheck{Name: "rules", Status: "ok", Detail: detail}
}

func checkPolicy() doctorCheck {
	path := policy.FindPolicyFile()
	if path == "" {
		return doctorCheck{Name: "policy", Status: "ok", Detail: "no policy file (install uses the status threshold only)"}
	}
	if _, err := policy.LoadFromFile(path); err != nil {
		return doctorCheck{Name: "policy", Status: "fail", Detail: err.Error()}
	}
	return doctorCheck{Name: "policy", Status: "ok", Detail: path}
}

func checkCloud() doctorCheck {
	if !cfg.Cloud {
		return doctorCheck{Name: "cloud", Status: "ok", Detail: "disabled"}
	}
	if cfg.APIKey == "" {
		return doctorCheck{
			Name:   "cloud",
			Status: "warn",
			Detail: "enabled but no API key. Run: clawshield activate <api-key>",
		}
	}
	if err := api.ValidateAPIKey(cfg.APIKey); err != nil {
		return doctorCheck{Name: "cloud", Status: "fail", Detail: fmt.Sprintf("invalid API key: %v", err)}
	}
	if cfg.Endpoint == "" {
		return doctorCheck{
			Name:   "cloud",
			Status: "warn",
			Detail: "enabled but no endpoint. Set endpoint: or CLAWSHIELD_ENDPOINT",
		}
	}
	if err := api.ValidateEndpoint(cfg.Endpoint); err != nil {
		return doctorCheck{Name: "cloud", Status: "fail", Detail: fmt.Sprintf("invalid endpoint: %v", err)}
	}
	return doctorCheck{
		Name:   "cloud",
		Status: "ok",
		Detail: fmt.Sprintf("key %s, reporting to %s", maskKey(cfg.APIKey), cfg.Endpoint),
	}
}

func checkWritableDir(name, dir, missingNote string) doctorCheck {
	info, err := os.Stat(dir)
	if err != nil {
		return doctorCheck{
			Name:   name,
			Status: "ok",
			Detail: fmt.Sprintf("%s (%s)", dir, missingNote),
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			Name:   name,
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", dir),
		}
	}

	// Try writing a temp file to check write access
	tmpFile := filepath.Join(dir, ".doctor-check")
	if err := os.WriteFile(tmpFile, []byte("ok"), 0600); err != nil {
		return doctorCheck{
			Name:   name,
			Status: "fail",
			Detail: fmt.Sprintf("%s not writable: %v", dir, err),
		}
	}
	_ = os.Remove(tmpFile)

	return doctorCheck{
		Name:   name,
		Status: "ok",
		Detail: dir,
	}
}

// joinMax joins up to n strings with ", ".
func joinMax(s []string, n int) string {
	if len(s) <= n {
		result := ""
		for i, v := range s {
			if i > 0 {
				result += ", "
			}
			result += v
		}
		return result
	}
	result := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			result += ", "
		}
		result += s[i]
	}
	return fmt.Sprintf("%s +%d more", result, len(s)-n)
}
