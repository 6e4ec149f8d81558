package calendar

import "time"

// LeaveTypeAll is the wildcard routing key: a config carrying it receives
// every leave regardless of type.
const LeaveTypeAll = "All"

// Config maps a leave type to a target Google calendar.
type Config struct {
	ID           int64     `json:"id"`
	LeaveType    string    `json:"leaveType"`
	CalendarID   string    `json:"calendarId"`
	CalendarName string    `json:"calendarName"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Token is a per-admin OAuth token pair. Access and refresh tokens are
// encrypted at rest with the application cipher.
type Token struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiryDate   time.Time `json:"expiryDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// EventMapping ties a leave request to the external event it produced in one
// calendar. It is derived cache state; the leave plus the configs stay
// authoritative.
type EventMapping struct {
	ID         int64     `json:"id"`
	LeaveID    int64     `json:"leaveId"`
	CalendarID string    `json:"calendarId"`
	EventID    string    `json:"eventId"`
	LastSynced time.Time `json:"lastSynced"`
}

// Credentials is the OAuth application's own client configuration.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"-"`
	RedirectURI  string `json:"redirectUri"`
}

// SyncResult describes one dispatch attempt. A skipped result is not an
// error: the sync is silently absent when prerequisites are missing.
type SyncResult struct {
	Synced  int    `json:"synced"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}
