package model

import "fmt"

// Role is a user's capability level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleStudent   Role = "student"
)

// ParseRole validates a role read from storage or input.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleOrganizer, RoleStudent:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ApprovalStatus is the admin gate on an event.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ParseApprovalStatus validates an approval status read from storage or input.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch a := ApprovalStatus(s); a {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return a, nil
	}
	return "", fmt.Errorf("unknown approval status %q", s)
}

// Decision is an admin verdict on a pending event.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Target returns the approval status a decision moves an event to.
func (d Decision) Target() (ApprovalStatus, error) {
	switch d {
	case DecisionApprove:
		return ApprovalApproved, nil
	case DecisionReject:
		return ApprovalRejected, nil
	}
	return "", fmt.Errorf("unknown decision %q", d)
}

// LifecycleStatus tracks where an event is in time. It is set manually by
// organizers and admins and is not derived from the clock.
type LifecycleStatus string

const (
	LifecycleUpcoming  LifecycleStatus = "upcoming"
	LifecycleOngoing   LifecycleStatus = "ongoing"
	LifecycleCompleted LifecycleStatus = "completed"
	LifecycleCancelled LifecycleStatus = "cancelled"
)

// ParseLifecycleStatus validates a lifecycle status read from storage or input.
func ParseLifecycleStatus(s string) (LifecycleStatus, error) {
	switch l := LifecycleStatus(s); l {
	case LifecycleUpcoming, LifecycleOngoing, LifecycleCompleted, LifecycleCancelled:
		return l, nil
	}
	return "", fmt.Errorf("unknown lifecycle status %q", s)
}

// Closed reports whether the event no longer accepts registrations.
func (l LifecycleStatus) Closed() bool {
	return l == LifecycleCompleted || l == LifecycleCancelled
}

var lifecycleTransitions = map[LifecycleStatus][]LifecycleStatus{
	LifecycleUpcoming: {LifecycleOngoing, LifecycleCancelled},
	LifecycleOngoing:  {LifecycleCompleted, LifecycleCancelled},
}

// CanTransitionTo reports whether the lifecycle may move from l to next.
// Staying in the same state is allowed.
func (l LifecycleStatus) CanTransitionTo(next LifecycleStatus) bool {
	if l == next {
		return true
	}
	for _, s := range lifecycleTransitions[l] {
		if s == next {
			return true
		}
	}
	return false
}

// RegistrationStatus is the state of a single registration.
//
// New registrations are created as registered and hold a seat immediately.
// Pending only appears on rows written before organizer approval was dropped
// and is treated exactly like registered.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationApproved   RegistrationStatus = "approved"
	RegistrationRejected   RegistrationStatus = "rejected"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAttended   RegistrationStatus = "attended"
)

// ActiveStatuses are the statuses that occupy a seat.
var ActiveStatuses = []RegistrationStatus{
	RegistrationPending,
	RegistrationRegistered,
	RegistrationApproved,
	RegistrationAttended,
}

// ParseRegistrationStatus validates a registration status read from storage or input.
func ParseRegistrationStatus(s string) (RegistrationStatus, error) {
	switch r := RegistrationStatus(s); r {
	case RegistrationPending, RegistrationRegistered, RegistrationApproved,
		RegistrationRejected, RegistrationCancelled, RegistrationAttended:
		return r, nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

// Active reports whether the registration counts toward capacity.
func (r RegistrationStatus) Active() bool {
	for _, s := range ActiveStatuses {
		if s == r {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (r RegistrationStatus) Terminal() bool {
	return r == RegistrationCancelled || r == RegistrationRejected || r == RegistrationAttended
}

// Cancellable reports whether a student may still withdraw.
func (r RegistrationStatus) Cancellable() bool {
	return r == RegistrationPending || r == RegistrationRegistered || r == RegistrationApproved
}

var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationPending:    {RegistrationApproved, RegistrationRejected, RegistrationCancelled},
	RegistrationRegistered: {RegistrationApproved, RegistrationRejected, RegistrationAttended, RegistrationCancelled},
	RegistrationApproved:   {RegistrationAttended, RegistrationCancelled},
}

// CanTransitionTo reports whether an organizer or admin may move r to next.
func (r RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	for _, s := range registrationTransitions[r] {
		if s == next {
			return true
		}
	}
	return false
}
