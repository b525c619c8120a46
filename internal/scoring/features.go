package scoring

import (
	"time"

	"fraudguard/internal/models"
)

const (
	entryOnline       = "online"
	entryManual       = "manual"
	categoryEcommerce = "ecommerce"
)

var mismatchLocations = map[string]bool{
	"abnormal": true,
	"foreign":  true,
}

// Derive computes the feature set for tx. Time features come from
// tx.Timestamp when present, otherwise from now, in that value's location.
func Derive(tx models.RawTransaction, now time.Time) models.FeatureSet {
	at := now
	if tx.Timestamp != nil {
		at = *tx.Timestamp
	}

	weekday := at.Weekday()

	return models.FeatureSet{
		HourOfDay:        at.Hour(),
		IsWeekend:        weekday == time.Saturday || weekday == time.Sunday,
		IsOnline:         tx.CardEntryMethod == entryOnline,
		IsManual:         tx.CardEntryMethod == entryManual,
		IsEcommerce:      tx.MerchantCategory == categoryEcommerce,
		LocationMismatch: mismatchLocations[tx.Location],
	}
}
