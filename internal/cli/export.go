package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/reporter"
	"github.com/ppiankov/clawshield/internal/storage"
)

var (
	exportFormat string
	exportOutput string
	exportLastN  int
	exportSkill  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored scans for compliance reporting",
	Long: `Export scan history in formats suitable for compliance evidence and
code scanning dashboards. Generates evidence packages from stored scans.

Supported formats:
  csv    Tabular format for spreadsheets and compliance tools
  json   Structured JSON for programmatic consumption
  sarif  SARIF 2.1.0 for GitHub Advanced Security and code scanning

Example:
  clawshield export --format csv -o scan-evidence.csv
  clawshield export --format sarif -o results.sarif --last 1
  clawshield export --format json --last 30 --skill weather-skill`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, json, or sarif")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().IntVarP(&exportLastN, "last", "n", 1,
		"number of recent scans to include")
	exportCmd.Flags().StringVar(&exportSkill, "skill", "",
		"only export scans of this skill")
}

// ComplianceRecord is a single row in the compliance export.
type ComplianceRecord struct {
	ScanTimestamp string `json:"scan_timestamp"`
	Skill         string `json:"skill"`
	RuleID        string `json:"rule_id"`
	Severity      string `json:"severity"`
	File          string `json:"file"`
	Line          int    `json:"line"`
	Match         string `json:"match"`
	Disposition   string `json:"disposition"` // "open" or "intentional"
	SkillStatus   string `json:"skill_status"`
	SkillScore    int    `json:"skill_score"`
}

// ComplianceExport is the full export payload.
type ComplianceExport struct {
	ExportedAt string             `json:"exported_at"`
	ScanCount  int                `json:"scan_count"`
	IssueCount int                `json:"issue_count"`
	Records    []ComplianceRecord `json:"records"`
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := validateFormat(exportFormat, "csv", "json", "sarif"); err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	scans, err := store.GetLastNRuns(exportLastN, exportSkill)
	if err != nil || len(scans) == 0 {
		fmt.Println("No stored scans found. Run 'clawshield scan --store' first.")
		return nil
	}

	logVerbose("Exporting %d scans", len(scans))

	var writer io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch exportFormat {
	case "csv":
		return writeCSV(writer, buildComplianceExport(scans))
	case "json":
		return writeExportJSON(writer, buildComplianceExport(scans))
	default:
		return writeSARIF(writer, scans)
	}
}

func buildComplianceExport(scans []*storage.StoredScan) *ComplianceExport {
	records := []ComplianceRecord{}

	for _, scan := range scans {
		ts := scan.Timestamp.Format(time.RFC3339)
		for _, f := range scan.Issues {
			disposition := "open"
			if f.Intentional {
				disposition = "intentional"
			}
			records = append(records, ComplianceRecord{
				ScanTimestamp: ts,
				Skill:         scan.Skill,
				RuleID:        f.RuleID,
				Severity:      string(f.Severity),
				File:          f.File,
				Line:          f.Line,
				Match:         f.Match,
				Disposition:   disposition,
				SkillStatus:   string(scan.Summary.Status),
				SkillScore:    scan.Summary.Score,
			})
		}
	}

	// Sort by severity (critical first), then skill, then file.
	sort.SliceStable(records, func(i, j int) bool {
		si := models.Severity(records[i].Severity).Rank()
		sj := models.Severity(records[j].Severity).Rank()
		if si != sj {
			return si < sj
		}
		if records[i].Skill != records[j].Skill {
			return records[i].Skill < records[j].Skill
		}
		return records[i].File < records[j].File
	})

	return &ComplianceExport{
		ExportedAt: now().UTC().Format(time.RFC3339),
		ScanCount:  len(scans),
		IssueCount: len(records),
		Records:    records,
	}
}

func writeCSV(w io.Writer, export *ComplianceExport) error {
	writer := csv.NewWriter(w)

	header := []string{
		"scan_timestamp", "skill", "rule_id", "severity", "file",
		"line", "match", "disposition", "skill_status", "skill_score",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range export.Records {
		row := []string{
			r.ScanTimestamp, r.Skill, r.RuleID, r.Severity, r.File,
			strconv.Itoa(r.Line), r.Match, r.Disposition, r.SkillStatus, strconv.Itoa(r.SkillScore),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExportJSON(w io.Writer, export *ComplianceExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// writeSARIF writes the findings of every scan as one SARIF run, with
// artifact paths prefixed by the skill name.
func writeSARIF(w io.Writer, scans []*storage.StoredScan) error {
	combined := &models.ScanResult{}
	for _, scan := range scans {
		for _, f := range scan.Issues {
			f.File = path.Join(scan.Skill, f.File)
			combined.Findings = append(combined.Findings, f)
		}
	}
	return reporter.NewSARIFReporter(w, buildVersion).Generate(combined)
}
