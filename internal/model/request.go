package model

import (
	"regexp"
	"strings"
	"time"
)

// MaxCapacity bounds event capacity to a sane upper limit.
const MaxCapacity = 100_000

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Capacity    *int   `json:"capacity"`
}

// Normalize trims free-text fields in place.
func (r *CreateEventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
}

// Validate checks every field and returns all violations at once. today is
// the current calendar day in the registry's location.
func (r *CreateEventRequest) Validate(today Date) (Date, error) {
	verr := &ValidationError{}
	if r.Title == "" {
		verr.Add("title", "title is required")
	}
	if r.Description == "" {
		verr.Add("description", "description is required")
	}
	if r.Location == "" {
		verr.Add("location", "location is required")
	}
	date := validateDate(verr, r.Date, today)
	validateTime(verr, r.Time)
	validateCapacity(verr, r.Capacity)
	return date, verr.OrNil()
}

// UpdateEventRequest carries a partial update. Nil fields are left unchanged.
type UpdateEventRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *string          `json:"date,omitempty"`
	Time        *string          `json:"time,omitempty"`
	Location    *string          `json:"location,omitempty"`
	Capacity    *int             `json:"capacity,omitempty"`
	Unlimited   bool             `json:"unlimited,omitempty"`
	Lifecycle   *LifecycleStatus `json:"lifecycle_status,omitempty"`
}

// TouchesContent reports whether any descriptive field is being changed.
func (r *UpdateEventRequest) TouchesContent() bool {
	return r.Title != nil || r.Description != nil || r.Date != nil || r.Time != nil ||
		r.Location != nil || r.Capacity != nil || r.Unlimited
}

// Empty reports whether the request changes nothing.
func (r *UpdateEventRequest) Empty() bool {
	return !r.TouchesContent() && r.Lifecycle == nil
}

// Apply validates the request and writes its fields onto e. e is only
// modified when every field is valid.
func (r *UpdateEventRequest) Apply(e *Event, today Date) error {
	verr := &ValidationError{}
	next := *e

	if r.Title != nil {
		if next.Title = strings.TrimSpace(*r.Title); next.Title == "" {
			verr.Add("title", "title is required")
		}
	}
	if r.Description != nil {
		if next.Description = strings.TrimSpace(*r.Description); next.Description == "" {
			verr.Add("description", "description is required")
		}
	}
	if r.Location != nil {
		if next.Location = strings.TrimSpace(*r.Location); next.Location == "" {
			verr.Add("location", "location is required")
		}
	}
	if r.Date != nil {
		next.Date = validateDate(verr, strings.TrimSpace(*r.Date), today)
	}
	if r.Time != nil {
		next.Time = strings.TrimSpace(*r.Time)
		validateTime(verr, next.Time)
	}
	switch {
	case r.Unlimited && r.Capacity != nil:
		verr.Add("capacity", "capacity cannot be set together with unlimited")
	case r.Unlimited:
		next.Capacity = nil
	case r.Capacity != nil:
		validateCapacity(verr, r.Capacity)
		c := *r.Capacity
		next.Capacity = &c
	}
	if r.Lifecycle != nil {
		if _, err := ParseLifecycleStatus(string(*r.Lifecycle)); err != nil {
			verr.Add("lifecycle_status", err.Error())
		} else {
			next.Lifecycle = *r.Lifecycle
		}
	}

	if err := verr.OrNil(); err != nil {
		return err
	}
	*e = next
	return nil
}

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Validate normalizes the request and returns all violations at once.
func (r *SignupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Username = strings.TrimSpace(r.Username)

	verr := &ValidationError{}
	if r.Name == "" {
		verr.Add("name", "name is required")
	}
	if !IsValidEmail(r.Email) {
		verr.Add("email", "a valid email is required")
	}
	if !usernamePattern.MatchString(r.Username) {
		verr.Add("username", "username must be 3-20 letters, digits or underscores")
	}
	if len(r.Password) < MinPasswordLength {
		verr.Add("password", "password must be at least 6 characters")
	}
	if _, err := ParseRole(string(r.Role)); err != nil {
		verr.Add("role", "role must be admin, organizer or student")
	}
	return verr.OrNil()
}

// IsValidEmail does a basic structural check.
func IsValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

func validateDate(verr *ValidationError, raw string, today Date) Date {
	if raw == "" {
		verr.Add("date", "date is required")
		return Date{}
	}
	d, err := ParseDate(raw)
	if err != nil {
		verr.Add("date", "date must be formatted as YYYY-MM-DD")
		return Date{}
	}
	if d.Before(today) {
		verr.Add("date", "date must be today or in the future")
	}
	return d
}

func validateTime(verr *ValidationError, raw string) {
	if raw == "" {
		verr.Add("time", "time is required")
		return
	}
	if _, err := time.Parse(TimeLayout, raw); err != nil {
		verr.Add("time", "time must be formatted as HH:MM")
	}
}

func validateCapacity(verr *ValidationError, capacity *int) {
	if capacity == nil {
		return
	}
	if *capacity <= 0 {
		verr.Add("capacity", "capacity must be a positive integer")
	} else if *capacity > MaxCapacity {
		verr.Add("capacity", "capacity cannot exceed 100,000")
	}
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DecisionRequest is the payload for an admin approval decision.
type DecisionRequest struct {
	Decision Decision `json:"decision"`
}

// RegistrationStatusRequest is the payload for moving a registration.
type RegistrationStatusRequest struct {
	Status RegistrationStatus `json:"status"`
}

// RoleRequest is the payload for changing a user's role.
type RoleRequest struct {
	Role Role `json:"role"`
}
