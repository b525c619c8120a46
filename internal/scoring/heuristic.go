package scoring

import (
	"fraudguard/internal/models"
)

// Weights are in basis points so the sum is exact before conversion.
const (
	baseRiskBP        = 500
	highAmountBP      = 5000
	mediumAmountBP    = 3000
	elevatedAmountBP  = 1000
	manualEntryBP     = 2000
	onlineEntryBP     = 1500
	ecommerceBP       = 1000
	riskyCategoryBP   = 1000
	locationBP        = 4000
	offHoursBP        = 1000
	weekendBP         = 500
	maxLocalScoreBP   = 9500
	basisPointsPerOne = 10000
)

var riskyCategories = map[string]bool{
	"travel":      true,
	"electronics": true,
}

// Signal is one rule of the local scorer that fired for a transaction.
type Signal struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	bp     int
}

func signal(name string, bp int) Signal {
	return Signal{Name: name, Weight: float64(bp) / basisPointsPerOne, bp: bp}
}

// LocalSignals lists every rule that fires for tx, starting with the base
// risk. Rules are independent; their weights sum to the unclamped score.
func LocalSignals(tx models.RawTransaction, f models.FeatureSet) []Signal {
	signals := []Signal{signal("base_risk", baseRiskBP)}

	switch {
	case tx.Amount > 2000:
		signals = append(signals, signal("high_amount", highAmountBP))
	case tx.Amount > 1000:
		signals = append(signals, signal("medium_amount", mediumAmountBP))
	case tx.Amount > 500:
		signals = append(signals, signal("elevated_amount", elevatedAmountBP))
	}

	if f.IsManual {
		signals = append(signals, signal("manual_entry", manualEntryBP))
	} else if f.IsOnline {
		signals = append(signals, signal("online_entry", onlineEntryBP))
	}

	if f.IsEcommerce {
		signals = append(signals, signal("ecommerce_merchant", ecommerceBP))
	}
	if riskyCategories[tx.MerchantCategory] {
		signals = append(signals, signal("risky_category", riskyCategoryBP))
	}
	if f.LocationMismatch {
		signals = append(signals, signal("location_mismatch", locationBP))
	}
	if f.HourOfDay < 6 || f.HourOfDay > 22 {
		signals = append(signals, signal("off_hours", offHoursBP))
	}
	if f.IsWeekend {
		signals = append(signals, signal("weekend", weekendBP))
	}

	return signals
}

// ScoreLocally is the rule-based fallback scorer. The result is within
// [0, 0.95].
func ScoreLocally(tx models.RawTransaction, f models.FeatureSet) float64 {
	total := 0
	for _, s := range LocalSignals(tx, f) {
		total += s.bp
	}
	total = max(0, min(total, maxLocalScoreBP))
	return float64(total) / basisPointsPerOne
}

// LocalResult scores and classifies tx without the remote service.
func LocalResult(tx models.RawTransaction, f models.FeatureSet) models.ScoringResult {
	score := ScoreLocally(tx, f)
	level, isFraud := Classify(score)
	return models.ScoringResult{
		IsFraud:    isFraud,
		Confidence: score,
		RiskLevel:  level,
		Source:     models.SourceFallback,
	}
}
