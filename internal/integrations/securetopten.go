package integrations

import (
	"strings"

	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

// NewSecureTopTen creates the adapter for the SecureTopTen scanner, which
// exercises the OWASP Top 10 for LLM applications
func NewSecureTopTen(cfg config.IntegrationConfig, deps Deps) *Integration {
	return newIntegration(config.IntegrationSecureTopTen, cfg, deps, normalizeSecureTopTen)
}

// owaspCategoryRisk grades findings by their OWASP LLM category when the
// scanner omits an explicit severity
var owaspCategoryRisk = map[string]probe.RiskLevel{
	"llm01": probe.RiskCritical, // prompt injection
	"llm02": probe.RiskHigh,     // insecure output handling
	"llm03": probe.RiskHigh,     // training data poisoning
	"llm04": probe.RiskMedium,   // model denial of service
	"llm05": probe.RiskMedium,   // supply chain
	"llm06": probe.RiskCritical, // sensitive information disclosure
	"llm07": probe.RiskMedium,   // insecure plugin design
	"llm08": probe.RiskHigh,     // excessive agency
	"llm09": probe.RiskLow,      // overreliance
	"llm10": probe.RiskHigh,     // model theft
}

func normalizeSecureTopTen(raw *rawProbeResult) *probe.ProbeResult {
	findings := make([]probe.Finding, 0, len(raw.Findings))
	for _, f := range raw.Findings {
		findings = append(findings, probe.Finding{
			ID:          f.ID,
			Title:       f.Title,
			Description: f.Description,
			RiskLevel:   secureTopTenRisk(f.Severity, f.ID),
			Evidence:    f.Evidence,
			Confidence:  f.Confidence,
			References:  f.References,
		})
	}

	return &probe.ProbeResult{
		Passed:    raw.Passed,
		RiskLevel: secureTopTenRisk(raw.Severity, raw.Detail),
		Findings:  findings,
	}
}

func secureTopTenRisk(severity, categoryHint string) probe.RiskLevel {
	switch strings.ToLower(severity) {
	case "critical":
		return probe.RiskCritical
	case "high":
		return probe.RiskHigh
	case "medium":
		return probe.RiskMedium
	case "low":
		return probe.RiskLow
	}

	hint := strings.ToLower(categoryHint)
	for category, risk := range owaspCategoryRisk {
		if strings.Contains(hint, category) {
			return risk
		}
	}

	return probe.RiskMedium
}
