package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Report sizes.
const (
	TopEventsLimit    = 5
	RecentEventsLimit = 10
)

// ReportRepository computes aggregate statistics.
type ReportRepository struct {
	db     *pgxpool.Pool
	events *EventRepository
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db, events: NewEventRepository(db)}
}

// Stats aggregates users, events and registrations. When organizerID is set
// only that organizer's events and their registrations are counted and user
// totals are omitted.
func (r *ReportRepository) Stats(ctx context.Context, organizerID string) (*model.Stats, error) {
	stats := &model.Stats{}
	var err error

	if organizerID == "" {
		stats.UsersByRole, stats.TotalUsers, err = r.countBy(ctx,
			`SELECT role, COUNT(*) FROM users GROUP BY role`)
		if err != nil {
			return nil, err
		}
	}

	stats.EventsByApproval, stats.TotalEvents, err = r.countBy(ctx,
		`SELECT approval_status, COUNT(*) FROM events
		 WHERE $1 = '' OR organizer_id::text = $1
		 GROUP BY approval_status`, organizerID)
	if err != nil {
		return nil, err
	}

	stats.EventsByLifecycle, _, err = r.countBy(ctx,
		`SELECT lifecycle_status, COUNT(*) FROM events
		 WHERE $1 = '' OR organizer_id::text = $1
		 GROUP BY lifecycle_status`, organizerID)
	if err != nil {
		return nil, err
	}

	stats.RegistrationsByStatus, stats.TotalRegistrations, err = r.countBy(ctx,
		`SELECT r.status, COUNT(*) FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE $1 = '' OR e.organizer_id::text = $1
		 GROUP BY r.status`, organizerID)
	if err != nil {
		return nil, err
	}

	stats.TopEvents, err = r.events.ListEvents(ctx, model.EventFilter{
		Approval:    model.ApprovalApproved,
		OrganizerID: organizerID,
		Sort:        model.SortByRegistrations,
		Order:       model.OrderDesc,
		Limit:       TopEventsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("top events: %w", err)
	}

	stats.RecentEvents, err = r.events.ListEvents(ctx, model.EventFilter{
		OrganizerID: organizerID,
		Sort:        model.SortByCreated,
		Order:       model.OrderDesc,
		Limit:       RecentEventsLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return stats, nil
}

func (r *ReportRepository) countBy(ctx context.Context, query string, args ...any) (model.CountByKey, int, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}
	defer rows.Close()

	counts := model.CountByKey{}
	total := 0
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, 0, fmt.Errorf("scan count: %w", err)
		}
		counts[key] = n
		total += n
	}
	return counts, total, rows.Err()
}

// Postgres bundles every repository behind one value.
type Postgres struct {
	*EventRepository
	*RegistrationRepository
	*UserRepository
	*ReportRepository
}

// NewPostgres constructs all repositories over one pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		EventRepository:        NewEventRepository(db),
		RegistrationRepository: NewRegistrationRepository(db),
		UserRepository:         NewUserRepository(db),
		ReportRepository:       NewReportRepository(db),
	}
}
