// Package model defines the core domain types for the campus event registry.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout and TimeLayout are the wire formats for an event's calendar date and start time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Date is a calendar day. It marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Caller identifies who is invoking a registry operation.
type Caller struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the caller holds the admin capability.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// User is an account of any role. Credentials live in a separate record.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is the login record attached to a user.
type Credentials struct {
	UserID       string
	Username     string
	PasswordHash string
}

// Event is a campus event created by an organizer.
type Event struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Date           Date            `json:"date"`
	Time           string          `json:"time"`
	Location       string          `json:"location"`
	Capacity       *int            `json:"capacity"`
	OrganizerID    string          `json:"organizer_id"`
	ApprovalStatus ApprovalStatus  `json:"approval_status"`
	Lifecycle      LifecycleStatus `json:"lifecycle_status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// StartsAt combines the event date and time in loc.
func (e *Event) StartsAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	hour, minute := 0, 0
	if t, err := time.Parse(TimeLayout, e.Time); err == nil {
		hour, minute = t.Hour(), t.Minute()
	}
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

// HasStarted reports whether the event start is at or before now.
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartsAt(now.Location()))
}

// Remaining returns the number of open seats, or -1 when capacity is unlimited.
func (e *Event) Remaining(active int) int {
	if e.Capacity == nil {
		return -1
	}
	if left := *e.Capacity - active; left > 0 {
		return left
	}
	return 0
}

// IsFull returns true when a capacity is set and active registrations reached it.
func (e *Event) IsFull(active int) bool {
	return e.Capacity != nil && active >= *e.Capacity
}

// EventSummary is an event plus its registration counts as shown in listings.
type EventSummary struct {
	Event
	OrganizerName string `json:"organizer_name,omitempty"`
	ActiveCount   int    `json:"active_count"`
	Remaining     int    `json:"remaining"`
	IsRegistered  bool   `json:"is_registered"`
}

// Summarize builds the listing view of e.
func Summarize(e Event, organizerName string, active int, registered bool) EventSummary {
	return EventSummary{
		Event:         e,
		OrganizerName: organizerName,
		ActiveCount:   active,
		Remaining:     e.Remaining(active),
		IsRegistered:  registered,
	}
}

// Registration represents a student's registration for an event.
type Registration struct {
	ID               string             `json:"id"`
	EventID          string             `json:"event_id"`
	StudentID        string             `json:"student_id"`
	RegistrationDate time.Time          `json:"registration_date"`
	Status           RegistrationStatus `json:"status"`
}

// RegistrationDetail joins a registration with the event and student it refers to.
type RegistrationDetail struct {
	Registration
	EventTitle   string `json:"event_title"`
	EventDate    Date   `json:"event_date"`
	EventTime    string `json:"event_time"`
	Location     string `json:"location"`
	OrganizerID  string `json:"organizer_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// CountByKey holds the result of a GROUP BY count keyed by the grouped column.
type CountByKey map[string]int

// Stats is the reporting projection for admins and organizers.
type Stats struct {
	TotalUsers            int            `json:"total_users,omitempty"`
	UsersByRole           CountByKey     `json:"users_by_role,omitempty"`
	TotalEvents           int            `json:"total_events"`
	EventsByApproval      CountByKey     `json:"events_by_approval"`
	EventsByLifecycle     CountByKey     `json:"events_by_lifecycle"`
	TotalRegistrations    int            `json:"total_registrations"`
	RegistrationsByStatus CountByKey     `json:"registrations_by_status"`
	TopEvents             []EventSummary `json:"top_events"`
	RecentEvents          []EventSummary `json:"recent_events"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// RegistrationAttempt records the outcome of one registration call.
// Used in the concurrent test harness.
type RegistrationAttempt struct {
	StudentID string
	Success   bool
	Error     error
}

func (r RegistrationAttempt) String() string {
	if r.Success {
		return fmt.Sprintf("%s: registered", r.StudentID)
	}
	return fmt.Sprintf("%s: %v", r.StudentID, r.Error)
}
