// Package aggregator rolls up scans of many skills and compares scans of
// one skill over time.
package aggregator

import (
	"time"

	"github.com/ppiankov/clawshield/internal/models"
)

// Aggregator merges skill scans into an audit report
type Aggregator struct {
	recommender *RecommendationGenerator
	now         func() time.Time
}

// New creates a new aggregator
func New() *Aggregator {
	return &Aggregator{
		recommender: NewRecommendationGenerator(),
		now:         time.Now,
	}
}

// Aggregate combines per-skill scans into one audit report. Skills whose
// scan failed are counted but contribute no findings.
func (a *Aggregator) Aggregate(skills []models.SkillReport) *models.AuditReport {
	report := &models.AuditReport{
		Timestamp: a.now().UTC(),
		Skills:    skills,
		Summary: models.AuditSummary{
			TotalSkills:  len(skills),
			WorstStatus:  models.StatusClean,
			ByStatus:     make(map[models.Status]int),
			IssuesByRule: make(map[string]int),
		},
		Recommendations: []models.Recommendation{},
	}
	if report.Skills == nil {
		report.Skills = []models.SkillReport{}
	}

	var findings []models.Finding
	for _, s := range skills {
		if s.Report == nil {
			report.Summary.FailedSkills++
			continue
		}
		a.addSkill(&report.Summary, s.Report)
		findings = append(findings, s.Report.Issues...)
	}

	report.Recommendations = a.recommender.GenerateRecommendations(findings)
	return report
}

// addSkill folds one skill report into the summary
func (a *Aggregator) addSkill(summary *models.AuditSummary, r *models.Report) {
	summary.ScannedSkills++
	summary.ByStatus[r.Summary.Status]++
	summary.TotalIssues += len(r.Issues)

	if r.Summary.Status.Rank() > summary.WorstStatus.Rank() {
		summary.WorstStatus = r.Summary.Status
	}
	if r.Summary.Score > summary.HighestScore {
		summary.HighestScore = r.Summary.Score
	}
	for _, f := range r.Issues {
		summary.IssuesByRule[f.RuleID]++
	}
}
