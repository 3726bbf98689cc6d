package integrations

import (
	"strings"

	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

// NewCounterfit creates the adapter for the Microsoft Counterfit attack
// framework
func NewCounterfit(cfg config.IntegrationConfig, deps Deps) *Integration {
	return newIntegration(config.IntegrationCounterfit, cfg, deps, normalizeCounterfit)
}

// normalizeCounterfit maps Counterfit's attack outcome vocabulary
// (severe/moderate/minor) onto the normalized risk levels
func normalizeCounterfit(raw *rawProbeResult) *probe.ProbeResult {
	findings := make([]probe.Finding, 0, len(raw.Findings))
	for _, f := range raw.Findings {
		findings = append(findings, probe.Finding{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			RiskLevel:   counterfitRisk(f.Severity),
			Evidence:    f.Evidence,
			Confidence:  f.Confidence,
			References:  f.References,
		})
	}

	return &probe.ProbeResult{
		Passed:    raw.Passed,
		RiskLevel: counterfitRisk(raw.Severity),
		Findings:  findings,
	}
}

func counterfitRisk(severity string) probe.RiskLevel {
	switch strings.ToLower(severity) {
	case "severe", "critical":
		return probe.RiskCritical
	case "high":
		return probe.RiskHigh
	case "moderate", "medium":
		return probe.RiskMedium
	default:
		return probe.RiskLow
	}
}
