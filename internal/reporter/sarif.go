package reporter

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/ppiankov/clawshield/internal/models"
)

// SARIF 2.1.0 output for code scanning integrations.
// Minimal structures, only what's needed for valid SARIF.

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name,omitempty"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID       string             `json:"ruleId"`
	Level        string             `json:"level"`
	Message      sarifMessage       `json:"message"`
	Locations    []sarifLocation    `json:"locations"`
	Suppressions []sarifSuppression `json:"suppressions,omitempty"`
}

type sarifSuppression struct {
	Kind          string `json:"kind"`
	Justification string `json:"justification,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// SARIFReporter writes scan findings as SARIF 2.1.0
type SARIFReporter struct {
	writer  io.Writer
	version string
}

// NewSARIFReporter creates a SARIF reporter. version is reported as the
// driver version.
func NewSARIFReporter(writer io.Writer, version string) *SARIFReporter {
	return &SARIFReporter{writer: writer, version: version}
}

// Generate writes the SARIF log for res
func (r *SARIFReporter) Generate(res *models.ScanResult) error {
	rulesMap := map[string]sarifRule{}
	results := make([]sarifResult, 0, len(res.Findings))

	var reason string
	if res.Declaration != nil {
		reason = res.Declaration.Reason
	}

	for _, f := range res.Findings {
		if _, exists := rulesMap[f.RuleID]; !exists {
			rulesMap[f.RuleID] = sarifRule{
				ID:               f.RuleID,
				Name:             f.RuleName,
				ShortDescription: sarifMessage{Text: f.Description},
				DefaultConfig:    sarifDefaultConfig{Level: sarifLevel(f.OriginalSeverity)},
			}
		}

		result := sarifResult{
			RuleID:  f.RuleID,
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: f.RuleName + ": " + f.Description},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: f.File},
				},
			}},
		}
		if f.Line > 0 {
			result.Locations[0].PhysicalLocation.Region = &sarifRegion{StartLine: f.Line}
		}
		if f.Intentional {
			result.Suppressions = []sarifSuppression{{Kind: "inSource", Justification: reason}}
		}
		results = append(results, result)
	}

	rules := make([]sarifRule, 0, len(rulesMap))
	for _, sr := range rulesMap {
		rules = append(rules, sr)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:    "clawshield",
					Version: r.version,
					Rules:   rules,
				},
			},
			Results: results,
		}},
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
