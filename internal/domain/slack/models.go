package slack

import "time"

// Config is the singleton Slack integration record. DayRange bounds the
// rolling summary window (1-30 days).
type Config struct {
	ID                int64      `json:"id"`
	ChannelID         string     `json:"channelId"`
	BotToken          string     `json:"-"`
	WebhookURL        string     `json:"webhookUrl,omitempty"`
	Enabled           bool       `json:"enabled"`
	DayRange          int        `json:"dayRange"`
	ScheduleTime      string     `json:"scheduleTime,omitempty"`
	WorkdaysOnly      bool       `json:"workdaysOnly"`
	LastSummarySentAt *time.Time `json:"lastSummarySentAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// SummaryRow is one line of the rolling-window summary, joined with the
// owner for display.
type SummaryRow struct {
	UserName   string
	Department string
	StartDate  time.Time
	EndDate    time.Time
	LeaveType  string
	Status     string
	IsHalfDay  bool
	Period     *string
}
