package service

import (
	"context"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// ReportService serves read-only aggregate views.
type ReportService struct {
	reports ReportStore
	options
}

// NewReportService constructs a ReportService.
func NewReportService(reports ReportStore, opts ...Option) *ReportService {
	return &ReportService{reports: reports, options: newOptions(opts)}
}

// Overview returns system-wide statistics. Admin only.
func (s *ReportService) Overview(ctx context.Context, caller model.Caller) (*model.Stats, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}
	stats, err := s.reports.Stats(ctx, "")
	if err != nil {
		return nil, model.Persistence("overview", err)
	}
	return stats, nil
}

// OrganizerAnalytics returns statistics scoped to the calling organizer's events.
func (s *ReportService) OrganizerAnalytics(ctx context.Context, caller model.Caller) (*model.Stats, error) {
	if caller.Role != model.RoleOrganizer {
		return nil, model.ErrForbidden
	}
	stats, err := s.reports.Stats(ctx, caller.ID)
	if err != nil {
		return nil, model.Persistence("organizer analytics", err)
	}
	return stats, nil
}
