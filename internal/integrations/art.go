package integrations

import (
	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

// NewART creates the adapter for the Adversarial Robustness Toolbox
func NewART(cfg config.IntegrationConfig, deps Deps) *Integration {
	return newIntegration(config.IntegrationART, cfg, deps, normalizeART)
}

// normalizeART maps ART's numeric attack success rates onto the normalized
// risk levels; ART reports no severity strings of its own
func normalizeART(raw *rawProbeResult) *probe.ProbeResult {
	findings := make([]probe.Finding, 0, len(raw.Findings))
	for _, f := range raw.Findings {
		findings = append(findings, probe.Finding{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			RiskLevel:   artRisk(f.Confidence),
			Evidence:    f.Evidence,
			Confidence:  f.Confidence,
			References:  f.References,
		})
	}

	return &probe.ProbeResult{
		Passed:    raw.Passed,
		RiskLevel: artRisk(raw.Score),
		Findings:  findings,
	}
}

// artRisk grades an attack success rate in [0,1]
func artRisk(successRate float64) probe.RiskLevel {
	switch {
	case successRate >= 0.75:
		return probe.RiskCritical
	case successRate >= 0.5:
		return probe.RiskHigh
	case successRate >= 0.25:
		return probe.RiskMedium
	default:
		return probe.RiskLow
	}
}
