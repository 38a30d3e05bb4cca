// Package repository implements storage for the campus event registry.
// Postgres is accessed with pgx directly (no ORM). Memory is an in-process
// driver with the same contract, used for development and tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activeUniqueIndex = "registrations_active_uniq"

const eventColumns = `e.id, e.title, e.description, e.event_date, to_char(e.event_time, 'HH24:MI'),
	e.location, e.capacity, e.organizer_id, e.approval_status, e.lifecycle_status, e.created_at`

// $1 is the active status set, $2 the viewer whose registration is flagged.
const eventSummarySelect = `SELECT ` + eventColumns + `, u.name,
	(SELECT COUNT(*) FROM registrations r
	  WHERE r.event_id = e.id AND r.status = ANY($1)) AS active_count,
	EXISTS (SELECT 1 FROM registrations r
	  WHERE r.event_id = e.id AND r.student_id::text = $2 AND r.status = ANY($1)) AS is_registered
	FROM events e JOIN users u ON u.id = e.organizer_id`

const registrationDetailSelect = `SELECT r.id, r.event_id, r.student_id, r.registration_date, r.status,
	e.title, e.event_date, to_char(e.event_time, 'HH24:MI'), e.location, e.organizer_id,
	s.name, s.email
	FROM registrations r
	JOIN events e ON e.id = r.event_id
	JOIN users s ON s.id = r.student_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (*model.Event, error) {
	var (
		e                   model.Event
		approval, lifecycle string
		err                 error
	)
	dest := []any{
		&e.ID, &e.Title, &e.Description, &e.Date.Time, &e.Time,
		&e.Location, &e.Capacity, &e.OrganizerID, &approval, &lifecycle, &e.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if e.ApprovalStatus, err = model.ParseApprovalStatus(approval); err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Lifecycle, err = model.ParseLifecycleStatus(lifecycle); err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	return &e, nil
}

func scanEventSummary(row rowScanner) (*model.EventSummary, error) {
	var (
		organizer  string
		active     int
		registered bool
	)
	e, err := scanEvent(row, &organizer, &active, &registered)
	if err != nil {
		return nil, err
	}
	s := model.Summarize(*e, organizer, active, registered)
	return &s, nil
}

func scanRegistrationDetail(row rowScanner) (*model.RegistrationDetail, error) {
	var (
		d      model.RegistrationDetail
		status string
	)
	err := row.Scan(
		&d.ID, &d.EventID, &d.StudentID, &d.RegistrationDate, &status,
		&d.EventTitle, &d.EventDate.Time, &d.EventTime, &d.Location, &d.OrganizerID,
		&d.StudentName, &d.StudentEmail,
	)
	if err != nil {
		return nil, err
	}
	if d.Status, err = model.ParseRegistrationStatus(status); err != nil {
		return nil, fmt.Errorf("registration %s: %w", d.ID, err)
	}
	return &d, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts e, assigning its ID when empty.
func (r *EventRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, event_date, event_time, location, capacity,
		                     organizer_id, approval_status, lifecycle_status, created_at)
		 VALUES ($1, $2, $3, $4, $5::text::time, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Title, e.Description, e.Date.Time, e.Time, e.Location, e.Capacity,
		e.OrganizerID, string(e.ApprovalStatus), string(e.Lifecycle), e.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// GetEventSummary returns an event with its counts, flagging viewerID's registration.
func (r *EventRepository) GetEventSummary(ctx context.Context, id, viewerID string) (*model.EventSummary, error) {
	s, err := scanEventSummary(r.db.QueryRow(ctx,
		eventSummarySelect+` WHERE e.id = $3`, activeStatuses(), viewerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event summary: %w", err)
	}
	return s, nil
}

// ListEvents returns the summaries matching f.
func (r *EventRepository) ListEvents(ctx context.Context, f model.EventFilter) ([]model.EventSummary, error) {
	w := newWhere(activeStatuses(), f.ViewerID)
	if f.Search != "" {
		w.add(`(e.title ILIKE $%[1]d OR e.description ILIKE $%[1]d OR e.location ILIKE $%[1]d)`, likePattern(f.Search))
	}
	if f.Approval != "" {
		w.add(`e.approval_status = $%d`, string(f.Approval))
	}
	if f.Lifecycle != "" {
		w.add(`e.lifecycle_status = $%d`, string(f.Lifecycle))
	}
	if f.OrganizerID != "" {
		w.add(`e.organizer_id::text = $%d`, f.OrganizerID)
	}
	if f.From != nil {
		w.add(`e.event_date >= $%d`, f.From.Time)
	}
	if f.To != nil {
		w.add(`e.event_date <= $%d`, f.To.Time)
	}

	query := eventSummarySelect + w.String() + eventOrderBy(f.Sort, f.Order)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []model.EventSummary{}
	for rows.Next() {
		s, err := scanEventSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *s)
	}
	return events, rows.Err()
}

// UpdateEvent writes next over prev. The write only applies while the row
// still carries prev's approval and lifecycle status; otherwise
// ErrInvalidTransition is returned.
func (r *EventRepository) UpdateEvent(ctx context.Context, prev, next *model.Event) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, event_date = $4, event_time = $5::text::time,
		     location = $6, capacity = $7, lifecycle_status = $8
		 WHERE id = $1 AND approval_status = $9 AND lifecycle_status = $10`,
		next.ID, next.Title, next.Description, next.Date.Time, next.Time,
		next.Location, next.Capacity, string(next.Lifecycle),
		string(prev.ApprovalStatus), string(prev.Lifecycle),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, next.ID)
	}
	return nil
}

// SetApproval moves an event's approval status from -> to.
func (r *EventRepository) SetApproval(ctx context.Context, id string, from, to model.ApprovalStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET approval_status = $3 WHERE id = $1 AND approval_status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// DeleteEvent removes an event. Registrations go with it via ON DELETE CASCADE.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *EventRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrInvalidTransition
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Register performs a concurrency-safe registration inside one transaction.
//
// Two students reading the active count before either inserts would both see
// a free seat. Locking the event row with SELECT ... FOR UPDATE makes every
// other registration for the same event wait until this transaction commits
// or rolls back, so the check and the insert observe the same count. The
// partial unique index on (event_id, student_id) backs the duplicate check.
func (r *RegistrationRepository) Register(ctx context.Context, eventID, studentID string, now time.Time) (*model.Registration, error) {
	var reg *model.Registration
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		e, err := scanEvent(tx.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events e WHERE e.id = $1 FOR UPDATE`, eventID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrNotFound
			}
			return fmt.Errorf("lock event row: %w", err)
		}

		var active, own int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE student_id::text = $2)
			 FROM registrations
			 WHERE event_id = $1 AND status = ANY($3)`,
			eventID, studentID, activeStatuses(),
		).Scan(&active, &own)
		if err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}

		if err := model.CheckRegistrable(e, now, active, own > 0); err != nil {
			return err
		}

		reg = &model.Registration{
			ID:               uuid.New().String(),
			EventID:          eventID,
			StudentID:        studentID,
			RegistrationDate: now.UTC(),
			Status:           model.RegistrationRegistered,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO registrations (id, event_id, student_id, registration_date, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			reg.ID, reg.EventID, reg.StudentID, reg.RegistrationDate, string(reg.Status),
		)
		switch {
		case database.IsUniqueViolation(err, activeUniqueIndex):
			return model.ErrAlreadyRegistered
		case database.IsForeignKeyViolation(err):
			return model.ErrNotFound
		case err != nil:
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegistration returns a registration joined with its event and student.
func (r *RegistrationRepository) GetRegistration(ctx context.Context, id string) (*model.RegistrationDetail, error) {
	d, err := scanRegistrationDetail(r.db.QueryRow(ctx, registrationDetailSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return d, nil
}

// SetRegistrationStatus moves a registration from -> to. ErrInvalidTransition
// is returned when the row no longer holds from.
func (r *RegistrationRepository) SetRegistrationStatus(ctx context.Context, id string, from, to model.RegistrationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("set registration status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check registration: %w", err)
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrInvalidTransition
}

// ListRegistrations returns registrations matching f.
func (r *RegistrationRepository) ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.RegistrationDetail, error) {
	w := newWhere()
	if f.EventID != "" {
		w.add(`r.event_id::text = $%d`, f.EventID)
	}
	if f.StudentID != "" {
		w.add(`r.student_id::text = $%d`, f.StudentID)
	}
	if f.OrganizerID != "" {
		w.add(`e.organizer_id::text = $%d`, f.OrganizerID)
	}
	if f.Status != "" {
		w.add(`r.status = $%d`, string(f.Status))
	}
	if f.Search != "" {
		w.add(`(e.title ILIKE $%[1]d OR s.name ILIKE $%[1]d OR s.email ILIKE $%[1]d)`, likePattern(f.Search))
	}
	query := registrationDetailSelect + w.String() +
		` ORDER BY r.registration_date ` + direction(f.Order, model.OrderDesc) + `, r.id`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	regs := []model.RegistrationDetail{}
	for rows.Next() {
		d, err := scanRegistrationDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *d)
	}
	return regs, rows.Err()
}
