package util

import "time"

const autoBatchLayout = "20060102-150405"

// NowUTC is the dashboard clock. Services keep it in a func field so tests can pin it.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// AutoBatchNumber names a URL driven run that came without a batch number,
// e.g. AUTO-20240305-141502.
func AutoBatchNumber(t time.Time) string {
	return "AUTO-" + t.UTC().Format(autoBatchLayout)
}
