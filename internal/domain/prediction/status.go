package prediction

import (
	"strings"

	"github.com/yanqian/thermostraw/internal/domain/chart"
)

// ParseStatus accepts both backend vocabularies.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "green", "conforme", "compliant":
		return StatusCompliant
	case "orange", "attention":
		return StatusAttention
	case "red", "non_conforme", "non-compliant", "non_compliant", "critical":
		return StatusNonCompliant
	default:
		return StatusUnknown
	}
}

// Badge compares lambda to the active threshold. Equal values are compliant.
func Badge(lambda, threshold float64) Status {
	if lambda <= threshold {
		return StatusCompliant
	}
	return StatusNonCompliant
}

// TierFor picks the guidance tier from the badge, the backend status and the chart.
func TierFor(p Prediction, threshold float64, points []chart.Point) Tier {
	if Badge(p.LambdaPredicted, threshold) == StatusNonCompliant {
		return TierCritical
	}
	if ParseStatus(p.Status) == StatusAttention || chart.AnyOutOfRange(points) {
		return TierAttention
	}
	return TierOptimal
}

// GuidanceFor returns the fixed texts of a tier.
func GuidanceFor(t Tier) Guidance {
	switch t {
	case TierOptimal:
		return Guidance{
			Tier:     t,
			Title:    "OPTIMAL QUALITY",
			Headline: "Optimal quality, production compliant",
			Advisories: []string{
				"Particle size distribution is optimal",
				"Thermal conductivity is compliant",
				"Fine particles are minimised",
			},
		}
	case TierAttention:
		return Guidance{
			Tier:     t,
			Title:    "ATTENTION",
			Headline: "Attention, particle size distribution outside optimal ranges",
			Advisories: []string{
				"Fractions outside optimal ranges",
				"Thermal conductivity is compliant",
				"Adjust grinding parameters",
			},
		}
	default:
		return Guidance{
			Tier:     TierCritical,
			Title:    "CRITICAL",
			Headline: "Critical, laboratory test required",
			Advisories: []string{
				"Laboratory test required",
				"Adjust chopping parameters",
				"Check sieve condition",
			},
		}
	}
}
