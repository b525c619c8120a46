package models

import "time"

type CountEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type AmountBucketCount struct {
	Name       string `json:"name"`
	Fraudulent int    `json:"fraudulent"`
	Legitimate int    `json:"legitimate"`
}

// BulkRowResult is one successfully scored row, carrying enough of the input
// for attribution.
type BulkRowResult struct {
	Row              int         `json:"row"`
	Amount           float64     `json:"amount"`
	MerchantName     string      `json:"merchantName,omitempty"`
	MerchantCategory string      `json:"merchantCategory"`
	CardEntryMethod  string      `json:"cardEntryMethod"`
	Location         string      `json:"location,omitempty"`
	IsFraud          bool        `json:"isFraud"`
	Confidence       float64     `json:"confidence"`
	RiskLevel        RiskLevel   `json:"riskLevel"`
	Status           Status      `json:"status"`
	Source           ScoreSource `json:"source"`
}

// RowFailure is only reported in verbose mode.
type RowFailure struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type BulkAnalysisSummary struct {
	BatchID                 string              `json:"batchId"`
	TotalTransactions       int                 `json:"totalTransactions"`
	FraudulentTransactions  int                 `json:"fraudulentTransactions"`
	SuspiciousTransactions  int                 `json:"suspiciousTransactions"`
	SafeTransactions        int                 `json:"safeTransactions"`
	FraudByMerchantCategory []CountEntry        `json:"fraudByMerchantCategory"`
	FraudByCardEntryMethod  []CountEntry        `json:"fraudByCardEntryMethod"`
	AmountDistribution      []AmountBucketCount `json:"amountDistribution"`
	ErrorCount              int                 `json:"errorCount"`
	SampleResults           []BulkRowResult     `json:"sampleResults"`
	RowErrors               []RowFailure        `json:"rowErrors,omitempty"`
	ProcessedAt             time.Time           `json:"processedAt"`
}

type DashboardStats struct {
	TotalTransactions      int          `json:"totalTransactions"`
	FraudDetected          int          `json:"fraudDetected"`
	SuspiciousTransactions int          `json:"suspiciousTransactions"`
	ByRiskLevel            []CountEntry `json:"byRiskLevel"`
	TopFraudCategories     []CountEntry `json:"topFraudCategories"`
}
