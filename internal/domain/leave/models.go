package leave

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
)

type LeaveRequest struct {
	ID                    int64     `json:"id"`
	UserID                int64     `json:"userId"`
	StartDate             time.Time `json:"startDate"`
	EndDate               time.Time `json:"endDate"`
	LeaveType             string    `json:"leaveType"`
	Reason                string    `json:"reason,omitempty"`
	IsHalfDay             bool      `json:"isHalfDay"`
	Period                *string   `json:"period"`
	Status                string    `json:"status"`
	ApprovedByID          *int64    `json:"approvedById"`
	SlackNotificationSent bool      `json:"slackNotificationSent"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`

	// Populated on admin listings only.
	UserName   string `json:"userName,omitempty"`
	Department string `json:"department,omitempty"`
}

// Fields holds the mutable subset of a leave request. Status and ownership
// are never part of it; status moves through SetStatus.
type Fields struct {
	StartDate time.Time
	EndDate   time.Time
	LeaveType string
	Reason    string
	IsHalfDay bool
	Period    *string
}
