package reporter

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/clawshield/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes the full report as JSON
func (r *JSONReporter) Generate(report *models.Report) error {
	return r.write(report)
}

// GenerateSummaryOnly writes the summary and issues without the formatted text
func (r *JSONReporter) GenerateSummaryOnly(report *models.Report) error {
	summary := struct {
		Summary models.Summary   `json:"summary"`
		Issues  []models.Finding `json:"issues"`
	}{
		Summary: report.Summary,
		Issues:  report.Issues,
	}
	return r.write(summary)
}

func (r *JSONReporter) write(v interface{}) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
