package scoring

import "fraudguard/internal/models"

const (
	highRiskThreshold   = 0.7
	mediumRiskThreshold = 0.4
	fraudThreshold      = 0.5
)

// Classify maps a score to its risk level and fraud decision. The fraud
// threshold sits inside the medium band, so a medium result may or may not be
// flagged.
func Classify(score float64) (models.RiskLevel, bool) {
	isFraud := score > fraudThreshold

	switch {
	case score >= highRiskThreshold:
		return models.RiskHigh, isFraud
	case score >= mediumRiskThreshold:
		return models.RiskMedium, isFraud
	default:
		return models.RiskLow, isFraud
	}
}
