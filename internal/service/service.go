// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. Every operation takes the
// calling user explicitly.
package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/logger"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/google/uuid"
)

// EventStore persists events.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	GetEventSummary(ctx context.Context, id, viewerID string) (*model.EventSummary, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.EventSummary, error)
	UpdateEvent(ctx context.Context, prev, next *model.Event) error
	SetApproval(ctx context.Context, id string, from, to model.ApprovalStatus) error
	DeleteEvent(ctx context.Context, id string) error
}

// RegistrationStore persists registrations. Register must run the
// registrability check and the insert atomically with respect to other
// registrations for the same event.
type RegistrationStore interface {
	Register(ctx context.Context, eventID, studentID string, now time.Time) (*model.Registration, error)
	GetRegistration(ctx context.Context, id string) (*model.RegistrationDetail, error)
	SetRegistrationStatus(ctx context.Context, id string, from, to model.RegistrationStatus) error
	ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.RegistrationDetail, error)
}

// UserStore persists users and credentials. ChangeRole and DeleteUser must
// enforce the last-admin rule inside the same atomic unit as the write.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User, cred model.Credentials) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetCredentials(ctx context.Context, username string) (*model.Credentials, error)
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error)
	ChangeRole(ctx context.Context, id string, role model.Role) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ReportStore computes aggregate statistics.
type ReportStore interface {
	Stats(ctx context.Context, organizerID string) (*model.Stats, error)
}

// Store is everything the services need. Both repository drivers satisfy it.
type Store interface {
	EventStore
	RegistrationStore
	UserStore
	ReportStore
}

// Option configures a service.
type Option func(*options)

type options struct {
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	loc     *time.Location
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the timezone event dates and times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

func newOptions(opts []Option) options {
	o := options{log: logger.Nop(), now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// clock returns the current instant in the registry's location.
func (o *options) clock() time.Time {
	return o.now().In(o.loc)
}

func (o *options) today() model.Date {
	return model.NewDate(o.clock())
}

// checkID rejects identifiers that cannot exist so they never reach storage.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrNotFound
	}
	return nil
}
