package service

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"go.uber.org/zap"
)

// EventRegistry owns the event approval workflow and registrations.
type EventRegistry struct {
	events        EventStore
	registrations RegistrationStore
	options
}

// NewEventRegistry constructs an EventRegistry with its dependencies.
func NewEventRegistry(events EventStore, registrations RegistrationStore, opts ...Option) *EventRegistry {
	return &EventRegistry{events: events, registrations: registrations, options: newOptions(opts)}
}

// CreateEvent validates the request and stores a pending, upcoming event
// owned by the calling organizer.
func (s *EventRegistry) CreateEvent(ctx context.Context, caller model.Caller, req model.CreateEventRequest) (*model.Event, error) {
	if caller.Role != model.RoleOrganizer {
		return nil, model.ErrForbidden
	}
	req.Normalize()
	date, err := req.Validate(s.today())
	if err != nil {
		return nil, err
	}

	e := &model.Event{
		Title:          req.Title,
		Description:    req.Description,
		Date:           date,
		Time:           req.Time,
		Location:       req.Location,
		Capacity:       req.Capacity,
		OrganizerID:    caller.ID,
		ApprovalStatus: model.ApprovalPending,
		Lifecycle:      model.LifecycleUpcoming,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.events.CreateEvent(ctx, e); err != nil {
		return nil, model.Persistence("create event", err)
	}

	s.log.WithContext(ctx).Info("event created",
		zap.String("event_id", e.ID),
		zap.String("organizer_id", caller.ID),
	)
	return e, nil
}

// DecideEvent approves or rejects a pending event. Repeating the decision the
// event already carries succeeds without changing anything.
func (s *EventRegistry) DecideEvent(ctx context.Context, caller model.Caller, eventID string, decision model.Decision) (*model.Event, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}
	target, err := decision.Target()
	if err != nil {
		verr := &model.ValidationError{}
		verr.Add("decision", "decision must be approve or reject")
		return nil, verr
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if e.ApprovalStatus == target {
		return e, nil
	}
	if e.ApprovalStatus != model.ApprovalPending {
		return nil, model.ErrInvalidTransition
	}

	if err := s.events.SetApproval(ctx, e.ID, model.ApprovalPending, target); err != nil {
		if !errors.Is(err, model.ErrInvalidTransition) {
			return nil, model.Persistence("decide event", err)
		}
		// Lost a race with another admin; fine if they reached the same verdict.
		current, getErr := s.getEvent(ctx, eventID)
		if getErr != nil {
			return nil, getErr
		}
		if current.ApprovalStatus != target {
			return nil, model.ErrInvalidTransition
		}
		return current, nil
	}
	e.ApprovalStatus = target

	s.metrics.Decision(string(target))
	s.log.WithContext(ctx).Info("event decided",
		zap.String("event_id", e.ID),
		zap.String("admin_id", caller.ID),
		zap.String("approval_status", string(target)),
	)
	return e, nil
}

// UpdateEvent applies a partial update. The owning organizer may edit content
// while the event is pending and move the lifecycle at any time. Admins may
// only move the lifecycle.
func (s *EventRegistry) UpdateEvent(ctx context.Context, caller model.Caller, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	owner := ownsEvent(caller, e.OrganizerID)

	switch {
	case owner:
		if req.TouchesContent() && e.ApprovalStatus != model.ApprovalPending {
			return nil, model.ErrInvalidTransition
		}
	case caller.IsAdmin():
		if req.TouchesContent() {
			return nil, model.ErrForbidden
		}
	case caller.Role == model.RoleOrganizer:
		return nil, model.ErrNotFound
	default:
		return nil, model.ErrForbidden
	}

	if req.Empty() {
		verr := &model.ValidationError{}
		verr.Add("request", "no fields to update")
		return nil, verr
	}

	next := *e
	if err := req.Apply(&next, s.today()); err != nil {
		return nil, err
	}
	if !e.Lifecycle.CanTransitionTo(next.Lifecycle) {
		return nil, model.ErrInvalidTransition
	}

	if err := s.events.UpdateEvent(ctx, e, &next); err != nil {
		return nil, model.Persistence("update event", err)
	}

	s.log.WithContext(ctx).Info("event updated",
		zap.String("event_id", e.ID),
		zap.String("caller_id", caller.ID),
		zap.String("lifecycle_status", string(next.Lifecycle)),
	)
	return &next, nil
}

// DeleteEvent removes an event and its registrations.
func (s *EventRegistry) DeleteEvent(ctx context.Context, caller model.Caller, eventID string) error {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := canManage(caller, e); err != nil {
		return err
	}
	if err := s.events.DeleteEvent(ctx, e.ID); err != nil {
		return model.Persistence("delete event", err)
	}

	s.log.WithContext(ctx).Info("event deleted",
		zap.String("event_id", e.ID),
		zap.String("caller_id", caller.ID),
	)
	return nil
}

// RegisterForEvent registers the calling student. The store performs the
// availability checks and the insert as one atomic step.
func (s *EventRegistry) RegisterForEvent(ctx context.Context, caller model.Caller, eventID string) (*model.Registration, error) {
	if caller.Role != model.RoleStudent {
		return nil, model.ErrForbidden
	}
	if err := checkID(eventID); err != nil {
		return nil, err
	}

	reg, err := s.registrations.Register(ctx, eventID, caller.ID, s.clock())
	log := s.log.WithContext(ctx).WithFields(
		zap.String("event_id", eventID),
		zap.String("student_id", caller.ID),
	)
	if err != nil {
		err = model.Persistence("register for event", err)
		s.metrics.RegistrationOutcome(model.Code(err))
		if model.IsDomain(err) {
			log.Info("registration refused", zap.Error(err))
		} else {
			log.Error("registration failed", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RegistrationOutcome("accepted")
	log.Info("registration accepted", zap.String("registration_id", reg.ID))
	return reg, nil
}

// CancelRegistration withdraws the caller's own registration before the
// event starts.
func (s *EventRegistry) CancelRegistration(ctx context.Context, caller model.Caller, registrationID string) (*model.Registration, error) {
	d, err := s.getRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if d.StudentID != caller.ID {
		return nil, model.ErrNotFound
	}

	event := &model.Event{Date: d.EventDate, Time: d.EventTime}
	if err := model.CheckCancellable(&d.Registration, event, s.clock()); err != nil {
		return nil, err
	}
	if err := s.registrations.SetRegistrationStatus(ctx, d.ID, d.Status, model.RegistrationCancelled); err != nil {
		return nil, model.Persistence("cancel registration", err)
	}

	s.log.WithContext(ctx).Info("registration cancelled",
		zap.String("registration_id", d.ID),
		zap.String("event_id", d.EventID),
	)
	reg := d.Registration
	reg.Status = model.RegistrationCancelled
	return &reg, nil
}

// UpdateRegistrationStatus moves a registration along its state machine. Only
// the organizer of the parent event or an admin may do so.
func (s *EventRegistry) UpdateRegistrationStatus(ctx context.Context, caller model.Caller, registrationID string, status model.RegistrationStatus) (*model.RegistrationDetail, error) {
	if _, err := model.ParseRegistrationStatus(string(status)); err != nil {
		verr := &model.ValidationError{}
		verr.Add("status", err.Error())
		return nil, verr
	}
	d, err := s.getRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !ownsEvent(caller, d.OrganizerID) {
		return nil, model.ErrForbidden
	}
	if !d.Status.CanTransitionTo(status) {
		return nil, model.ErrInvalidTransition
	}
	if err := s.registrations.SetRegistrationStatus(ctx, d.ID, d.Status, status); err != nil {
		return nil, model.Persistence("update registration status", err)
	}

	s.log.WithContext(ctx).Info("registration status changed",
		zap.String("registration_id", d.ID),
		zap.String("from", string(d.Status)),
		zap.String("to", string(status)),
		zap.String("caller_id", caller.ID),
	)
	d.Status = status
	return d, nil
}

// GetEvent returns an event with its counts if the caller may see it.
// Students see approved events, organizers their own plus approved ones.
func (s *EventRegistry) GetEvent(ctx context.Context, caller model.Caller, eventID string) (*model.EventSummary, error) {
	if err := checkID(eventID); err != nil {
		return nil, err
	}
	viewer := ""
	if caller.Role == model.RoleStudent {
		viewer = caller.ID
	}
	summary, err := s.events.GetEventSummary(ctx, eventID, viewer)
	if err != nil {
		return nil, model.Persistence("get event", err)
	}
	if !caller.IsAdmin() && !ownsEvent(caller, summary.OrganizerID) && summary.ApprovalStatus != model.ApprovalApproved {
		return nil, model.ErrNotFound
	}
	return summary, nil
}

// ListEvents returns the events visible to the caller. Admins see every
// event, organizers their own, and students the approved upcoming events
// that have not started yet.
func (s *EventRegistry) ListEvents(ctx context.Context, caller model.Caller, f model.EventFilter) ([]model.EventSummary, error) {
	now := s.clock()
	today := model.NewDate(now)
	if f.Window != "" {
		from, to, ok := f.Window.Range(today)
		if !ok {
			verr := &model.ValidationError{}
			verr.Add("window", "window must be today, tomorrow, this_week or this_month")
			return nil, verr
		}
		f.From, f.To = &from, &to
	}

	switch caller.Role {
	case model.RoleAdmin:
	case model.RoleOrganizer:
		f.OrganizerID = caller.ID
	case model.RoleStudent:
		f.Approval = model.ApprovalApproved
		f.Lifecycle = model.LifecycleUpcoming
		f.ViewerID = caller.ID
		if f.From == nil || f.From.Before(today) {
			f.From = &today
		}
	default:
		return nil, model.ErrForbidden
	}

	events, err := s.events.ListEvents(ctx, f)
	if err != nil {
		return nil, model.Persistence("list events", err)
	}
	if caller.Role != model.RoleStudent {
		return events, nil
	}

	open := events[:0]
	for _, e := range events {
		if !e.HasStarted(now) {
			open = append(open, e)
		}
	}
	return open, nil
}

// ListRegistrations returns the registrations visible to the caller: a
// student's own, an organizer's events', or all of them for admins.
func (s *EventRegistry) ListRegistrations(ctx context.Context, caller model.Caller, f model.RegistrationFilter) ([]model.RegistrationDetail, error) {
	switch caller.Role {
	case model.RoleAdmin:
	case model.RoleOrganizer:
		f.OrganizerID = caller.ID
	case model.RoleStudent:
		f.StudentID = caller.ID
	default:
		return nil, model.ErrForbidden
	}
	regs, err := s.registrations.ListRegistrations(ctx, f)
	if err != nil {
		return nil, model.Persistence("list registrations", err)
	}
	return regs, nil
}

// ListEventRegistrations returns the registrations of one event to its
// organizer or an admin.
func (s *EventRegistry) ListEventRegistrations(ctx context.Context, caller model.Caller, eventID string) ([]model.RegistrationDetail, error) {
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := canManage(caller, e); err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListRegistrations(ctx, model.RegistrationFilter{EventID: e.ID, Order: model.OrderAsc})
	if err != nil {
		return nil, model.Persistence("list event registrations", err)
	}
	return regs, nil
}

func (s *EventRegistry) getEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	e, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, model.Persistence("get event", err)
	}
	return e, nil
}

func (s *EventRegistry) getRegistration(ctx context.Context, id string) (*model.RegistrationDetail, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	d, err := s.registrations.GetRegistration(ctx, id)
	if err != nil {
		return nil, model.Persistence("get registration", err)
	}
	return d, nil
}

// canManage allows admins and the owning organizer. Other organizers get
// ErrNotFound so event existence does not leak between organizers.
func canManage(caller model.Caller, e *model.Event) error {
	switch {
	case caller.IsAdmin(), ownsEvent(caller, e.OrganizerID):
		return nil
	case caller.Role == model.RoleOrganizer:
		return model.ErrNotFound
	default:
		return model.ErrForbidden
	}
}

// ownsEvent reports whether caller is the organizer of record. Ownership
// lapses when the account no longer holds the organizer role.
func ownsEvent(caller model.Caller, organizerID string) bool {
	return caller.Role == model.RoleOrganizer && organizerID == caller.ID
}
