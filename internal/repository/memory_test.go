package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, m *Memory, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@campus.test", Role: role, CreatedAt: testNow}
	require.NoError(t, m.CreateUser(context.Background(), u, model.Credentials{Username: name, PasswordHash: "x"}))
	return u
}

func seedEvent(t *testing.T, m *Memory, organizerID string, capacity *int, approval model.ApprovalStatus) *model.Event {
	t.Helper()
	date, err := model.ParseDate("2026-04-01")
	require.NoError(t, err)
	e := &model.Event{
		Title: "Robotics Expo", Description: "Demos", Date: date, Time: "10:00",
		Location: "Hall A", Capacity: capacity, OrganizerID: organizerID,
		ApprovalStatus: approval, Lifecycle: model.LifecycleUpcoming, CreatedAt: testNow,
	}
	require.NoError(t, m.CreateEvent(context.Background(), e))
	return e
}

func intPtr(n int) *int { return &n }

func TestMemory_RegisterRespectsCapacityUnderContention(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	event := seedEvent(t, m, org.ID, intPtr(1), model.ApprovalApproved)

	students := make([]*model.User, 10)
	for i := range students {
		students[i] = seedUser(t, m, "student"+string(rune('a'+i)), model.RoleStudent)
	}

	results := make([]model.RegistrationAttempt, len(students))
	var wg sync.WaitGroup
	for i, s := range students {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := m.Register(ctx, event.ID, id, testNow)
			results[i] = model.RegistrationAttempt{StudentID: id, Success: err == nil, Error: err}
		}(i, s.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
			continue
		}
		assert.ErrorIs(t, r.Error, model.ErrCapacityExceeded, r.String())
	}
	assert.Equal(t, 1, succeeded)

	summary, err := m.GetEventSummary(ctx, event.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ActiveCount)
	assert.Equal(t, 0, summary.Remaining)
}

func TestMemory_RegisterDuplicateAndReRegister(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	student := seedUser(t, m, "student", model.RoleStudent)
	event := seedEvent(t, m, org.ID, nil, model.ApprovalApproved)

	reg, err := m.Register(ctx, event.ID, student.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationRegistered, reg.Status)

	_, err = m.Register(ctx, event.ID, student.ID, testNow)
	assert.ErrorIs(t, err, model.ErrAlreadyRegistered)

	require.NoError(t, m.SetRegistrationStatus(ctx, reg.ID, model.RegistrationRegistered, model.RegistrationCancelled))
	again, err := m.Register(ctx, event.ID, student.ID, testNow)
	require.NoError(t, err)
	assert.NotEqual(t, reg.ID, again.ID)
}

func TestMemory_SetRegistrationStatusIsCompareAndSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	student := seedUser(t, m, "student", model.RoleStudent)
	event := seedEvent(t, m, org.ID, nil, model.ApprovalApproved)
	reg, err := m.Register(ctx, event.ID, student.ID, testNow)
	require.NoError(t, err)

	require.NoError(t, m.SetRegistrationStatus(ctx, reg.ID, model.RegistrationRegistered, model.RegistrationApproved))
	err = m.SetRegistrationStatus(ctx, reg.ID, model.RegistrationRegistered, model.RegistrationRejected)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.ErrorIs(t, m.SetRegistrationStatus(ctx, "missing", model.RegistrationApproved, model.RegistrationAttended), model.ErrNotFound)

	d, err := m.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationApproved, d.Status)
	assert.Equal(t, "Robotics Expo", d.EventTitle)
	assert.Equal(t, "student", d.StudentName)
	assert.Equal(t, org.ID, d.OrganizerID)
}

func TestMemory_UpdateEventDetectsConcurrentChange(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	event := seedEvent(t, m, org.ID, nil, model.ApprovalPending)

	prev, err := m.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.NoError(t, m.SetApproval(ctx, event.ID, model.ApprovalPending, model.ApprovalApproved))

	next := *prev
	next.Title = "Renamed"
	assert.ErrorIs(t, m.UpdateEvent(ctx, prev, &next), model.ErrInvalidTransition)
	assert.ErrorIs(t, m.SetApproval(ctx, event.ID, model.ApprovalPending, model.ApprovalRejected), model.ErrInvalidTransition)

	got, err := m.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robotics Expo", got.Title)
	assert.Equal(t, model.ApprovalApproved, got.ApprovalStatus)
}

func TestMemory_DeleteCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	student := seedUser(t, m, "student", model.RoleStudent)
	event := seedEvent(t, m, org.ID, nil, model.ApprovalApproved)
	_, err := m.Register(ctx, event.ID, student.ID, testNow)
	require.NoError(t, err)

	require.NoError(t, m.DeleteUser(ctx, org.ID))

	_, err = m.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	regs, err := m.ListRegistrations(ctx, model.RegistrationFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Empty(t, regs)
	_, err = m.GetCredentials(ctx, "organizer")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemory_LastAdminGuard(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	admin := seedUser(t, m, "admin", model.RoleAdmin)

	_, err := m.ChangeRole(ctx, admin.ID, model.RoleStudent)
	assert.ErrorIs(t, err, model.ErrLastAdmin)
	assert.ErrorIs(t, m.DeleteUser(ctx, admin.ID), model.ErrLastAdmin)

	second := seedUser(t, m, "admin2", model.RoleAdmin)
	updated, err := m.ChangeRole(ctx, admin.ID, model.RoleOrganizer)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizer, updated.Role)
	assert.ErrorIs(t, m.DeleteUser(ctx, second.ID), model.ErrLastAdmin)
}

func TestMemory_CreateUserRejectsDuplicates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, "alice", model.RoleStudent)

	err := m.CreateUser(ctx, &model.User{Name: "x", Email: "ALICE@campus.test", Role: model.RoleStudent},
		model.Credentials{Username: "other", PasswordHash: "x"})
	assert.ErrorIs(t, err, model.ErrDuplicateAccount)

	err = m.CreateUser(ctx, &model.User{Name: "x", Email: "new@campus.test", Role: model.RoleStudent},
		model.Credentials{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, model.ErrDuplicateAccount)
}

func TestMemory_ListEventsFilterAndSort(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	other := seedUser(t, m, "other", model.RoleOrganizer)
	student := seedUser(t, m, "student", model.RoleStudent)

	a := seedEvent(t, m, org.ID, nil, model.ApprovalApproved)
	b := seedEvent(t, m, org.ID, intPtr(5), model.ApprovalApproved)
	c := seedEvent(t, m, other.ID, nil, model.ApprovalPending)

	next := *b
	next.Title = "Art Walk"
	next.Location = "Gallery"
	require.NoError(t, m.UpdateEvent(ctx, b, &next))

	_, err := m.Register(ctx, b.ID, student.ID, testNow)
	require.NoError(t, err)

	list, err := m.ListEvents(ctx, model.EventFilter{Approval: model.ApprovalApproved, Sort: model.SortByTitle, ViewerID: student.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.True(t, list[0].IsRegistered)
	assert.Equal(t, 4, list[0].Remaining)
	assert.Equal(t, a.ID, list[1].ID)
	assert.Equal(t, -1, list[1].Remaining)

	list, err = m.ListEvents(ctx, model.EventFilter{Search: "gallery"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = m.ListEvents(ctx, model.EventFilter{OrganizerID: other.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
	assert.Equal(t, "other", list[0].OrganizerName)

	list, err = m.ListEvents(ctx, model.EventFilter{Sort: model.SortByRegistrations, Order: model.OrderDesc, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestMemory_Stats(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, "admin", model.RoleAdmin)
	org := seedUser(t, m, "organizer", model.RoleOrganizer)
	other := seedUser(t, m, "other", model.RoleOrganizer)
	student := seedUser(t, m, "student", model.RoleStudent)

	e := seedEvent(t, m, org.ID, nil, model.ApprovalApproved)
	seedEvent(t, m, other.ID, nil, model.ApprovalPending)
	_, err := m.Register(ctx, e.ID, student.ID, testNow)
	require.NoError(t, err)

	all, err := m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalUsers)
	assert.Equal(t, 2, all.UsersByRole["organizer"])
	assert.Equal(t, 2, all.TotalEvents)
	assert.Equal(t, 1, all.EventsByApproval["pending"])
	assert.Equal(t, 1, all.RegistrationsByStatus["registered"])
	require.Len(t, all.TopEvents, 1)
	assert.Equal(t, e.ID, all.TopEvents[0].ID)
	assert.Len(t, all.RecentEvents, 2)

	mine, err := m.Stats(ctx, other.ID)
	require.NoError(t, err)
	assert.Zero(t, mine.TotalUsers)
	assert.Nil(t, mine.UsersByRole)
	assert.Equal(t, 1, mine.TotalEvents)
	assert.Zero(t, mine.TotalRegistrations)
	assert.Empty(t, mine.TopEvents)
}
