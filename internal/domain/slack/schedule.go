package slack

import (
	"time"
)

// scheduleTolerance is how far the wall clock may drift from the configured
// HH:MM before a poll is considered off-schedule.
const scheduleTolerance = 5 * time.Minute

// summaryCooldown guards against double-sends when the cron endpoint is
// polled more often than once per tolerance window.
const summaryCooldown = 10 * time.Minute

// scheduleMatches reports whether now falls inside the send window for the
// configured schedule.
func scheduleMatches(now time.Time, scheduleTime string, workdaysOnly bool) bool {
	if scheduleTime == "" {
		return false
	}
	parsed, err := time.Parse("15:04", scheduleTime)
	if err != nil {
		return false
	}
	if workdaysOnly {
		switch now.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= scheduleTolerance
}

// recentlySent reports whether a summary already went out inside the current
// cooldown window.
func recentlySent(now time.Time, lastSent *time.Time) bool {
	return lastSent != nil && now.Sub(*lastSent) < summaryCooldown
}
