// Package collector scans many installed skills concurrently.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/clawshield/internal/discovery"
	"github.com/ppiankov/clawshield/internal/models"
	"github.com/ppiankov/clawshield/internal/reporter"
)

// Scanner scans one skill directory.
type Scanner interface {
	Scan(ctx context.Context, path string) (*models.ScanResult, error)
}

// Config holds configuration for the collector
type Config struct {
	MaxConcurrency int
	Timeout        time.Duration
	Logger         *zap.SugaredLogger
}

// Collector runs one scan per skill over a bounded worker pool
type Collector struct {
	config  Config
	scanner Scanner
}

// New creates a new collector with the given configuration
func New(config Config, scanner Scanner) *Collector {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	return &Collector{
		config:  config,
		scanner: scanner,
	}
}

// CollectSkills scans skills concurrently. Results keep the order of
// skills. A failed scan is recorded on its report; an error is returned
// only when every scan failed or the context ended.
func (c *Collector) CollectSkills(ctx context.Context, skills []discovery.Skill) ([]models.SkillReport, error) {
	if len(skills) == 0 {
		return []models.SkillReport{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	results := make([]models.SkillReport, len(skills))
	indexCh := make(chan int, len(skills))

	workers := c.config.MaxConcurrency
	if workers > len(skills) {
		workers = len(skills)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, skills, indexCh, results)
	}

	for i := range skills {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("audit interrupted: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Report == nil {
			failed++
		}
	}
	if failed == len(results) {
		return results, fmt.Errorf("all skills failed to scan (%d errors)", failed)
	}
	if failed > 0 {
		c.config.Logger.Warnw("some skills failed to scan", "failed", failed, "total", len(results))
	}

	return results, nil
}

// worker scans skills by index and writes only its own result slots
func (c *Collector) worker(ctx context.Context, wg *sync.WaitGroup, skills []discovery.Skill, indexCh <-chan int, results []models.SkillReport) {
	defer wg.Done()

	for i := range indexCh {
		skill := skills[i]
		results[i] = models.SkillReport{
			Name:     skill.Name,
			Path:     skill.Path,
			Location: skill.Location,
		}

		if err := ctx.Err(); err != nil {
			results[i].Error = err.Error()
			continue
		}

		res, err := c.scanner.Scan(ctx, skill.Path)
		if err != nil {
			results[i].Error = err.Error()
			c.config.Logger.Infow("scan failed", "skill", skill.Name, "error", err)
			continue
		}
		results[i].Report = reporter.Assemble(res)
		c.config.Logger.Infow("scanned skill", "skill", skill.Name, "status", res.Status, "score", res.Score)
	}
}
