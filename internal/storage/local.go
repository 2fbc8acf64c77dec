package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timestampLayout = "2006-01-02T15-04-05.000"

// ErrNoRuns is returned when the history holds no matching scans.
var ErrNoRuns = errors.New("no runs found")

var unsafeSkillChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalStorage implements Storage interface using local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
	}
}

// SaveScan writes runs/<timestamp>-<skill>.json
func (s *LocalStorage) SaveScan(scan *StoredScan) error {
	if scan.Timestamp.IsZero() {
		return fmt.Errorf("scan has no timestamp")
	}
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}

	runsDir := filepath.Join(s.baseDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	path := filepath.Join(runsDir, s.fileName(scan.Timestamp, scan.Skill))

	data, err := json.MarshalIndent(scan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scan: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ListRuns returns all stored runs sorted chronologically
func (s *LocalStorage) ListRuns() ([]Run, error) {
	runsDir := filepath.Join(s.baseDir, "runs")

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []Run{}, nil
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	runs := []Run{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		run, ok := s.parseFileName(entry.Name())
		if !ok {
			// Not one of ours
			continue
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Skill < runs[j].Skill
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})

	return runs, nil
}

// GetLastNRuns retrieves the last n scans, oldest first. An empty skill
// matches every skill.
func (s *LocalStorage) GetLastNRuns(n int, skill string) ([]*StoredScan, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if skill != "" {
		want := sanitizeSkill(skill)
		filtered := runs[:0]
		for _, r := range runs {
			if r.Skill == want {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	if len(runs) == 0 {
		return nil, ErrNoRuns
	}

	start := len(runs) - n
	if start < 0 || n <= 0 {
		start = 0
	}

	scans := make([]*StoredScan, 0, len(runs)-start)
	for _, r := range runs[start:] {
		scan, err := s.load(r)
		if err != nil {
			// Skip scans that fail to load but continue with others
			continue
		}
		scans = append(scans, scan)
	}

	return scans, nil
}

// GetLatestForSkill retrieves the most recent scan of skill
func (s *LocalStorage) GetLatestForSkill(skill string) (*StoredScan, error) {
	scans, err := s.GetLastNRuns(1, skill)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, ErrNoRuns
	}
	return scans[0], nil
}

func (s *LocalStorage) load(r Run) (*StoredScan, error) {
	path := filepath.Join(s.baseDir, "runs", r.file)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scan not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var scan StoredScan
	if err := json.Unmarshal(data, &scan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan: %w", err)
	}

	return &scan, nil
}

// fileName builds <timestamp>-<skill>.json
func (s *LocalStorage) fileName(t time.Time, skill string) string {
	return s.formatTimestamp(t) + "-" + sanitizeSkill(skill) + ".json"
}

func (s *LocalStorage) parseFileName(name string) (Run, bool) {
	if !strings.HasSuffix(name, ".json") || len(name) <= len(timestampLayout)+1 {
		return Run{}, false
	}
	stem := strings.TrimSuffix(name, ".json")
	if stem[len(timestampLayout)] != '-' {
		return Run{}, false
	}
	ts, err := s.parseTimestamp(stem[:len(timestampLayout)])
	if err != nil {
		return Run{}, false
	}
	skill := stem[len(timestampLayout)+1:]
	if skill == "" {
		return Run{}, false
	}
	return Run{Timestamp: ts, Skill: skill, file: name}, true
}

// formatTimestamp converts a time.Time to filename-safe format
func (s *LocalStorage) formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp converts filename format back to time.Time
func (s *LocalStorage) parseTimestamp(str string) (time.Time, error) {
	return time.Parse(timestampLayout, str)
}

func sanitizeSkill(skill string) string {
	clean := unsafeSkillChars.ReplaceAllString(skill, "_")
	if clean == "" {
		return "skill"
	}
	return clean
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the storage directory if it doesn't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	return os.MkdirAll(filepath.Join(s.baseDir, "runs"), 0755)
}
