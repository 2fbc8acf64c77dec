package storage

import (
	"time"

	"github.com/ppiankov/clawshield/internal/models"
)

// StoredScan is one persisted scan in the history.
type StoredScan struct {
	ID          string           `json:"id"`
	Timestamp   time.Time        `json:"timestamp"`
	Skill       string           `json:"skill"`
	Path        string           `json:"path"`
	Fingerprint string           `json:"fingerprint"`
	Summary     models.Summary   `json:"summary"`
	Issues      []models.Finding `json:"issues"`
}

// Run identifies a stored scan without loading it.
type Run struct {
	Timestamp time.Time
	Skill     string
	file      string
}

// Storage defines the interface for persisting scans
type Storage interface {
	// SaveScan stores a scan record
	SaveScan(scan *StoredScan) error

	// ListRuns returns all stored runs, oldest first
	ListRuns() ([]Run, error)

	// GetLastNRuns retrieves the last N scans, optionally for one skill
	GetLastNRuns(n int, skill string) ([]*StoredScan, error)

	// GetLatestForSkill retrieves the most recent scan of a skill
	GetLatestForSkill(skill string) (*StoredScan, error)
}
