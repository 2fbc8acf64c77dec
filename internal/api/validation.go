package api

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/clawshield/internal/models"
)

const (
	// MaxSkillNameLength bounds the skill identifier sent to the cloud.
	MaxSkillNameLength = 255

	// MaxFindings bounds the number of findings in one payload.
	MaxFindings = 10_000

	maxAPIKeyLength = 256
)

var (
	apiKeyPattern      = regexp.MustCompile(`^sk_[A-Za-z0-9_-]{8,}$`)
	fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)
)

// FindingInput is the per-finding part of a scan payload.
type FindingInput struct {
	RuleID   string
	Severity string
	File     string
	Line     int
}

// ScanInput captures the scan payload fields that must be validated.
type ScanInput struct {
	SkillName   string
	Fingerprint string
	Status      string
	Score       int
	Counts      []int
	Findings    []FindingInput
}

// ValidateAPIKey enforces the sk_<token> key format.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("api key is required")
	}
	if len(key) > maxAPIKeyLength {
		return fmt.Errorf("api key exceeds %d characters", maxAPIKeyLength)
	}
	if !apiKeyPattern.MatchString(key) {
		return fmt.Errorf("api key must match sk_<token>")
	}
	return nil
}

// ValidateEndpoint requires an absolute http or https URL.
func ValidateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("endpoint is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint must include a host")
	}
	return nil
}

// ValidateSkillName rejects empty names and anything that looks like a path.
func ValidateSkillName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("skill name is required")
	}
	if len(name) > MaxSkillNameLength {
		return fmt.Errorf("skill name exceeds %d characters", MaxSkillNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("skill name must not contain path separators")
	}
	return nil
}

// ValidateScanInput checks a scan payload before submission. Findings may
// only carry base file names so that no directory layout leaves the host.
func ValidateScanInput(input ScanInput) error {
	if err := ValidateSkillName(input.SkillName); err != nil {
		return err
	}
	if !fingerprintPattern.MatchString(input.Fingerprint) {
		return fmt.Errorf("fingerprint must be 16 lowercase hex characters")
	}
	if _, ok := models.ParseStatus(input.Status); !ok {
		return fmt.Errorf("unsupported status %q", input.Status)
	}
	if input.Score < 0 || input.Score > 100 {
		return fmt.Errorf("score must be between 0 and 100")
	}
	for _, n := range input.Counts {
		if n < 0 {
			return fmt.Errorf("counts must not be negative")
		}
	}
	if len(input.Findings) > MaxFindings {
		return fmt.Errorf("findings exceed %d entries", MaxFindings)
	}

	for i, f := range input.Findings {
		if strings.TrimSpace(f.RuleID) == "" {
			return fmt.Errorf("finding %d: rule_id is required", i)
		}
		if f.Severity == "" {
			return fmt.Errorf("finding %d: severity is required", i)
		}
		if strings.ContainsAny(f.File, `/\`) {
			return fmt.Errorf("finding %d: file must be a base name", i)
		}
		if f.Line < 0 {
			return fmt.Errorf("finding %d: line must not be negative", i)
		}
	}

	return nil
}
