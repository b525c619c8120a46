package models

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Status is the persisted disposition of a scored transaction.
type Status string

const (
	StatusSafe       Status = "safe"
	StatusSuspicious Status = "suspicious"
	StatusFraudulent Status = "fraudulent"
)

// ScoreSource records which scorer produced a result.
type ScoreSource string

const (
	SourceRemote   ScoreSource = "remote"
	SourceFallback ScoreSource = "fallback"
)

// RawTransaction is a transaction as submitted for scoring. A nil Timestamp
// means "now" at evaluation time.
type RawTransaction struct {
	Amount           float64    `json:"amount" validate:"gt=0"`
	MerchantName     string     `json:"merchantName,omitempty"`
	MerchantCategory string     `json:"merchantCategory" validate:"required"`
	Location         string     `json:"location,omitempty"`
	IPAddress        string     `json:"ipAddress,omitempty" validate:"omitempty,ipv4"`
	CardEntryMethod  string     `json:"cardEntryMethod" validate:"required"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
}

// FeatureSet holds the signals derived from one RawTransaction for one
// evaluation.
type FeatureSet struct {
	HourOfDay        int  `json:"hour_of_day"`
	IsWeekend        bool `json:"is_weekend"`
	IsOnline         bool `json:"is_online"`
	IsManual         bool `json:"is_manual"`
	IsEcommerce      bool `json:"is_ecommerce"`
	LocationMismatch bool `json:"location_mismatch"`
}

type ScoringResult struct {
	IsFraud    bool        `json:"is_fraud"`
	Confidence float64     `json:"confidence"`
	RiskLevel  RiskLevel   `json:"risk_level"`
	Source     ScoreSource `json:"source"`
}

// StatusFor buckets a result: fraudulent if flagged, else suspicious when
// confidence is above 0.5, else safe.
func StatusFor(r ScoringResult) Status {
	switch {
	case r.IsFraud:
		return StatusFraudulent
	case r.Confidence > 0.5:
		return StatusSuspicious
	default:
		return StatusSafe
	}
}

// TransactionRecord is a persisted transaction together with its latest score.
type TransactionRecord struct {
	ID               int64     `json:"id"`
	TransactionID    string    `json:"transactionId"`
	Amount           float64   `json:"amount"`
	MerchantName     string    `json:"merchantName"`
	MerchantCategory string    `json:"merchantCategory"`
	Location         string    `json:"location"`
	IPAddress        string    `json:"ipAddress"`
	CardEntryMethod  string    `json:"cardEntryMethod"`
	Timestamp        time.Time `json:"timestamp"`
	IsFraud          bool      `json:"isFraud"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	Status           Status    `json:"status"`
}

type NewTransaction struct {
	Amount           float64
	MerchantName     string
	MerchantCategory string
	Location         string
	IPAddress        string
	CardEntryMethod  string
	Timestamp        time.Time
}

type ScoreUpdate struct {
	IsFraud    bool
	Confidence float64
	RiskLevel  RiskLevel
	Status     Status
}

func ScoreUpdateFor(r ScoringResult) ScoreUpdate {
	return ScoreUpdate{
		IsFraud:    r.IsFraud,
		Confidence: r.Confidence,
		RiskLevel:  r.RiskLevel,
		Status:     StatusFor(r),
	}
}
