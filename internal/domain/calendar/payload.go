package calendar

import (
	"fmt"

	gcal "google.golang.org/api/calendar/v3"

	"leavedesk/internal/domain/leave"
)

// Half-day hour windows.
const (
	morningStartHour   = 9
	morningEndHour     = 13
	afternoonStartHour = 13
	afternoonEndHour   = 18
)

// EventPayload builds the Google event for a leave. Full-day leaves become
// all-day events; Google treats the end date as exclusive, so it is the leave
// end plus one day. Half-day leaves become timed events in the configured
// timezone.
func EventPayload(lv leave.LeaveRequest, ownerName, timezone string) *gcal.Event {
	summary := fmt.Sprintf("%s - %s Leave", ownerName, lv.LeaveType)
	event := &gcal.Event{
		Summary:     summary,
		Description: lv.Reason,
	}

	if lv.IsHalfDay && lv.Period != nil {
		startHour, endHour := morningStartHour, morningEndHour
		if *lv.Period == leave.PeriodAfternoon {
			startHour, endHour = afternoonStartHour, afternoonEndHour
		}
		day := lv.StartDate.Format("2006-01-02")
		event.Start = &gcal.EventDateTime{
			DateTime: fmt.Sprintf("%sT%02d:00:00", day, startHour),
			TimeZone: timezone,
		}
		event.End = &gcal.EventDateTime{
			DateTime: fmt.Sprintf("%sT%02d:00:00", day, endHour),
			TimeZone: timezone,
		}
		return event
	}

	event.Start = &gcal.EventDateTime{Date: lv.StartDate.Format("2006-01-02")}
	event.End = &gcal.EventDateTime{Date: lv.EndDate.AddDate(0, 0, 1).Format("2006-01-02")}
	return event
}
