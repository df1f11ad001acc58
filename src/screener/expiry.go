package screener

import "time"

// NextFridayExpiry returns the next Friday after now in YYYYMMDD format,
// the default expiry for the chain lookup.
func NextFridayExpiry(now time.Time) string {
	daysAhead := int(time.Friday - now.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}

	return now.AddDate(0, 0, daysAhead).Format("20060102")
}
