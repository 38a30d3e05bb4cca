package model

import "strings"

// SortOrder is ASC or DESC.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder falls back to def on anything unrecognised.
func ParseSortOrder(s string, def SortOrder) SortOrder {
	switch SortOrder(strings.ToLower(s)) {
	case OrderAsc:
		return OrderAsc
	case OrderDesc:
		return OrderDesc
	}
	return def
}

// EventSort is a whitelisted event sort key.
type EventSort string

const (
	SortByDate          EventSort = "date"
	SortByTitle         EventSort = "title"
	SortByCreated       EventSort = "created"
	SortByRegistrations EventSort = "registrations"
)

// ParseEventSort falls back to SortByDate on anything unrecognised.
func ParseEventSort(s string) EventSort {
	switch e := EventSort(strings.ToLower(s)); e {
	case SortByDate, SortByTitle, SortByCreated, SortByRegistrations:
		return e
	}
	return SortByDate
}

// DateWindow names a relative date range used by the browse page.
type DateWindow string

const (
	WindowToday     DateWindow = "today"
	WindowTomorrow  DateWindow = "tomorrow"
	WindowThisWeek  DateWindow = "this_week"
	WindowThisMonth DateWindow = "this_month"
)

// Range resolves the window against today. ok is false for unknown windows.
func (w DateWindow) Range(today Date) (from, to Date, ok bool) {
	switch w {
	case WindowToday:
		return today, today, true
	case WindowTomorrow:
		t := Date{today.AddDate(0, 0, 1)}
		return t, t, true
	case WindowThisWeek:
		return today, Date{today.AddDate(0, 0, 7)}, true
	case WindowThisMonth:
		return today, Date{today.AddDate(0, 1, 0)}, true
	}
	return Date{}, Date{}, false
}

// EventFilter narrows an event listing. Zero values mean "no constraint".
type EventFilter struct {
	Search      string
	Approval    ApprovalStatus
	Lifecycle   LifecycleStatus
	OrganizerID string
	From        *Date
	To          *Date
	// Window, when set, replaces From and To with a range relative to today.
	Window DateWindow
	// ViewerID fills EventSummary.IsRegistered for that student.
	ViewerID string
	Sort     EventSort
	Order    SortOrder
	Limit    int
}

// RegistrationFilter narrows a registration listing.
type RegistrationFilter struct {
	EventID     string
	StudentID   string
	OrganizerID string
	Status      RegistrationStatus
	Search      string
	Order       SortOrder
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Role   Role
	Search string
	Order  SortOrder
}

// MatchesSearch reports whether any of fields contains term, case-insensitively.
func MatchesSearch(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
