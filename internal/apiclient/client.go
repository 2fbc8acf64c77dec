package apiclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/clawshield/internal/api"
	"github.com/ppiankov/clawshield/internal/models"
)

// Client submits anonymized scan results to the ClawShield cloud.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates an API client. Returns nil if apiKey is empty.
func New(endpoint, apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FindingPayload is one finding as sent to the cloud. File is a base name.
type FindingPayload struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// ScanPayload is the body POSTed to the scan-report endpoint.
type ScanPayload struct {
	ScanID           string           `json:"scan_id"`
	SkillName        string           `json:"skill_name"`
	SkillFingerprint string           `json:"skill_fingerprint"`
	Status           string           `json:"status"`
	Score            int              `json:"score"`
	FilesScanned     int              `json:"files_scanned"`
	IssuesCount      int              `json:"issues_count"`
	CriticalCount    int              `json:"critical_count"`
	HighCount        int              `json:"high_count"`
	MediumCount      int              `json:"medium_count"`
	Findings         []FindingPayload `json:"findings"`
	ScannedAt        string           `json:"scanned_at"`
}

// Fingerprint identifies a skill path without revealing it.
func Fingerprint(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}

// BuildPayload strips a report down to what the cloud is allowed to see.
func BuildPayload(report *models.Report, skillPath string, now time.Time) ScanPayload {
	s := report.Summary
	findings := make([]FindingPayload, 0, len(report.Issues))
	for _, f := range report.Issues {
		findings = append(findings, FindingPayload{
			RuleID:   f.RuleID,
			Severity: string(f.Severity),
			File:     filepath.Base(filepath.FromSlash(f.File)),
			Line:     f.Line,
		})
	}

	return ScanPayload{
		ScanID:           uuid.NewString(),
		SkillName:        filepath.Base(skillPath),
		SkillFingerprint: Fingerprint(skillPath),
		Status:           string(s.Status),
		Score:            s.Score,
		FilesScanned:     s.FilesScanned,
		IssuesCount:      s.IssuesFound,
		CriticalCount:    s.CriticalIssues,
		HighCount:        s.HighIssues,
		MediumCount:      s.MediumIssues,
		Findings:         findings,
		ScannedAt:        now.UTC().Format(time.RFC3339),
	}
}

func (p ScanPayload) input() api.ScanInput {
	findings := make([]api.FindingInput, 0, len(p.Findings))
	for _, f := range p.Findings {
		findings = append(findings, api.FindingInput{
			RuleID:   f.RuleID,
			Severity: f.Severity,
			File:     f.File,
			Line:     f.Line,
		})
	}
	return api.ScanInput{
		SkillName:   p.SkillName,
		Fingerprint: p.SkillFingerprint,
		Status:      p.Status,
		Score:       p.Score,
		Counts:      []int{p.FilesScanned, p.IssuesCount, p.CriticalCount, p.HighCount, p.MediumCount},
		Findings:    findings,
	}
}

// SubmitScan sends a scan payload. Any 2xx response is success.
func (c *Client) SubmitScan(ctx context.Context, payload ScanPayload) error {
	if c == nil {
		return nil
	}
	if err := api.ValidateAPIKey(c.apiKey); err != nil {
		return fmt.Errorf("invalid api key: %w", err)
	}
	if err := api.ValidateEndpoint(c.endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if err := api.ValidateScanInput(payload.input()); err != nil {
		return fmt.Errorf("invalid scan payload: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal scan: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit scan: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp["error"]
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("API error: %s", msg)
	}

	return nil
}
