// Package scanner runs the rule catalog over a skill directory and produces
// a scored ScanResult.
package scanner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/clawshield/internal/declaration"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/rules"
	"github.com/ppiankov/clawshield/internal/scoring"
	"github.com/ppiankov/clawshield/internal/walker"
)

// Config holds configuration for the scanner
type Config struct {
	MaxFiles    int
	MaxFileSize int64
	Workers     int

	// RootSafety enables the score multiplier and status escalation. The
	// caller decides it from configuration and the process privilege.
	RootSafety    bool
	RunningAsRoot bool

	// PreciseLines reports the line of the actual match instead of the
	// first occurrence of the matched text.
	PreciseLines bool

	Catalog *rules.Catalog
	Logger  *zap.SugaredLogger
}

// Scanner scans skill directories. It holds no per-scan state and is safe
// for concurrent use.
type Scanner struct {
	config Config
}

// PathNotFoundError is returned when the scan root does not exist.
type PathNotFoundError struct {
	Path string
	Err  error
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *PathNotFoundError) Unwrap() error {
	return e.Err
}

// New creates a new scanner with the given configuration
func New(config Config) *Scanner {
	if config.MaxFiles <= 0 {
		config.MaxFiles = walker.DefaultMaxFiles
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = walker.DefaultMaxFileSize
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.Catalog == nil {
		config.Catalog = rules.Default()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	return &Scanner{config: config}
}

// Catalog returns the rule catalog the scanner matches with.
func (s *Scanner) Catalog() *rules.Catalog {
	return s.config.Catalog
}

// Scan inspects the directory at path.
func (s *Scanner) Scan(ctx context.Context, path string) (*models.ScanResult, error) {
	start := time.Now()
	log := s.config.Logger

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PathNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", path)
	}

	decl := declaration.Load(path)
	if decl != nil {
		log.Debugw("declaration loaded",
			"security_tool", decl.IsSecurityTool,
			"tool", decl.Tool,
			"ignored", decl.IgnoredIDs())
	}

	walked, err := walker.Walk(ctx, path, walker.Options{
		MaxFiles:    s.config.MaxFiles,
		MaxFileSize: s.config.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	log.Debugw("files selected", "count", len(walked.Files), "dirs_skipped", walked.DirsSkipped)

	slots, skipped, err := s.matchFiles(ctx, walked.Files, decl)
	if err != nil {
		return nil, err
	}

	var findings []models.Finding
	for _, slot := range slots {
		findings = append(findings, slot...)
	}

	raw := scoring.RawScore(findings)
	final := scoring.FinalScore(raw, s.config.RootSafety)

	result := &models.ScanResult{
		Root:           path,
		FilesScanned:   len(walked.Files) - skipped,
		FilesSkipped:   skipped,
		DirsSkipped:    walked.DirsSkipped,
		Findings:       findings,
		RawScore:       raw,
		Score:          final,
		Status:         scoring.Evaluate(final, s.config.RootSafety),
		RootSafetyMode: s.config.RootSafety,
		RunningAsRoot:  s.config.RunningAsRoot,
	}
	if result.Findings == nil {
		result.Findings = []models.Finding{}
	}
	result.IntentionalPatterns = decl != nil && decl.IsSecurityTool && len(findings) > 0
	if decl != nil {
		result.Declaration = &models.DeclarationInfo{
			IsSecurityTool: decl.IsSecurityTool,
			Tool:           decl.Tool,
			Reason:         decl.Reason,
			Ignored:        decl.IgnoredIDs(),
		}
	}
	result.Duration = time.Since(start)

	log.Infow("scan complete",
		"path", path,
		"files", result.FilesScanned,
		"findings", len(findings),
		"score", final,
		"status", result.Status)

	return result, nil
}

// matchFiles reads and matches files on a bounded worker pool. Each file
// owns the slot at its walk index, so the flattened findings keep walk order.
func (s *Scanner) matchFiles(ctx context.Context, files []walker.File, decl *declaration.Config) ([][]models.Finding, int, error) {
	slots := make([][]models.Finding, len(files))
	var skipped atomic.Int64

	indexCh := make(chan int)
	var wg sync.WaitGroup
	workers := s.config.Workers
	if workers > len(files) {
		workers = len(files)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				findings, ok := s.matchFile(files[i], decl)
				if !ok {
					skipped.Add(1)
					continue
				}
				slots[i] = findings
			}
		}()
	}

	var cancelled error
dispatch:
	for i := range files {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(indexCh)
	wg.Wait()

	if cancelled != nil {
		return nil, 0, fmt.Errorf("scan interrupted: %w", cancelled)
	}
	return slots, int(skipped.Load()), nil
}

// matchFile returns false when the file cannot be read as UTF-8 text.
func (s *Scanner) matchFile(f walker.File, decl *declaration.Config) ([]models.Finding, bool) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		s.config.Logger.Warnw("skipping unreadable file", "file", f.Rel, "error", err)
		return nil, false
	}
	if !utf8.Valid(data) {
		s.config.Logger.Warnw("skipping non UTF-8 file", "file", f.Rel)
		return nil, false
	}
	return matchContent(string(data), f.Rel, s.config.Catalog, decl, s.config.PreciseLines), true
}
