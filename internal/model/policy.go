package model

import "time"

// CheckRegistrable returns the reason a student cannot register for e at now,
// or nil. active is the number of seat-holding registrations and
// alreadyRegistered reports whether the student holds one of them.
//
// Both storage drivers call this inside their critical section so the check
// and the insert observe the same state.
func CheckRegistrable(e *Event, now time.Time, active int, alreadyRegistered bool) error {
	if e.ApprovalStatus != ApprovalApproved {
		return ErrNotApproved
	}
	if e.Lifecycle.Closed() || e.HasStarted(now) {
		return ErrEventClosed
	}
	if alreadyRegistered {
		return ErrAlreadyRegistered
	}
	if e.IsFull(active) {
		return ErrCapacityExceeded
	}
	return nil
}

// CheckCancellable returns the reason a student cannot withdraw reg at now.
func CheckCancellable(reg *Registration, e *Event, now time.Time) error {
	if !reg.Status.Cancellable() {
		return ErrInvalidTransition
	}
	if e.HasStarted(now) {
		return ErrTooLate
	}
	return nil
}

// CheckRoleChange returns ErrLastAdmin when demoting or deleting target would
// leave no admin. admins is the current number of admin accounts. A nil next
// means the account is being deleted.
func CheckRoleChange(target *User, next *Role, admins int) error {
	if target.Role != RoleAdmin {
		return nil
	}
	if next != nil && *next == RoleAdmin {
		return nil
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}
