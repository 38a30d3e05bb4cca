package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process store with the same contract as Postgres. A single
// mutex serialises every operation, so the check-then-insert in Register is
// atomic just like the locked transaction.
type Memory struct {
	mu     sync.Mutex
	users  map[string]*model.User
	creds  map[string]*model.Credentials // by user ID
	events map[string]*model.Event
	regs   map[string]*model.Registration
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*model.User),
		creds:  make(map[string]*model.Credentials),
		events: make(map[string]*model.Event),
		regs:   make(map[string]*model.Registration),
	}
}

// ─── users ───────────────────────────────────────────────────────────────────

func (m *Memory) CreateUser(_ context.Context, u *model.User, cred model.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.users {
		if strings.EqualFold(other.Email, u.Email) {
			return model.ErrDuplicateAccount
		}
	}
	for _, c := range m.creds {
		if c.Username == cred.Username {
			return model.ErrDuplicateAccount
		}
	}

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Username = cred.Username
	stored := *u
	m.users[u.ID] = &stored
	cred.UserID = u.ID
	m.creds[u.ID] = &cred
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *Memory) GetCredentials(_ context.Context, username string) (*model.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.creds {
		if c.Username == username {
			out := *c
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context, f model.UserFilter) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := []model.User{}
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if !model.MatchesSearch(f.Search, u.Name, u.Email, u.Username) {
			continue
		}
		users = append(users, *u)
	}
	desc := f.Order != model.OrderAsc
	slices.SortStableFunc(users, func(a, b model.User) int {
		return ordered(a.CreatedAt.Compare(b.CreatedAt), a.ID, b.ID, desc)
	})
	return users, nil
}

func (m *Memory) ChangeRole(_ context.Context, id string, role model.Role) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if err := model.CheckRoleChange(u, &role, m.countAdmins()); err != nil {
		return nil, err
	}
	u.Role = role
	out := *u
	return &out, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return model.ErrNotFound
	}
	if err := model.CheckRoleChange(u, nil, m.countAdmins()); err != nil {
		return err
	}

	for eid, e := range m.events {
		if e.OrganizerID == id {
			m.deleteEventLocked(eid)
		}
	}
	for rid, r := range m.regs {
		if r.StudentID == id {
			delete(m.regs, rid)
		}
	}
	delete(m.creds, id)
	delete(m.users, id)
	return nil
}

func (m *Memory) countAdmins() int {
	n := 0
	for _, u := range m.users {
		if u.Role == model.RoleAdmin {
			n++
		}
	}
	return n
}

// ─── events ──────────────────────────────────────────────────────────────────

func (m *Memory) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[e.OrganizerID]; !ok {
		return model.ErrNotFound
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	stored := cloneEvent(e)
	m.events[e.ID] = stored
	return nil
}

func (m *Memory) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (m *Memory) GetEventSummary(_ context.Context, id, viewerID string) (*model.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	s := m.summarize(e, viewerID)
	return &s, nil
}

func (m *Memory) ListEvents(_ context.Context, f model.EventFilter) ([]model.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listEventsLocked(f), nil
}

func (m *Memory) listEventsLocked(f model.EventFilter) []model.EventSummary {
	out := []model.EventSummary{}
	for _, e := range m.events {
		switch {
		case f.Approval != "" && e.ApprovalStatus != f.Approval,
			f.Lifecycle != "" && e.Lifecycle != f.Lifecycle,
			f.OrganizerID != "" && e.OrganizerID != f.OrganizerID,
			f.From != nil && e.Date.Before(*f.From),
			f.To != nil && f.To.Before(e.Date),
			!model.MatchesSearch(f.Search, e.Title, e.Description, e.Location):
			continue
		}
		out = append(out, m.summarize(e, f.ViewerID))
	}

	desc := f.Order == model.OrderDesc
	slices.SortStableFunc(out, func(a, b model.EventSummary) int {
		var c int
		switch f.Sort {
		case model.SortByTitle:
			c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case model.SortByCreated:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case model.SortByRegistrations:
			c = cmp.Compare(a.ActiveCount, b.ActiveCount)
		default:
			c = cmpOr(a.Date.Compare(b.Date.Time), strings.Compare(a.Time, b.Time))
		}
		return ordered(c, a.ID, b.ID, desc)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (m *Memory) UpdateEvent(_ context.Context, prev, next *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.events[next.ID]
	if !ok {
		return model.ErrNotFound
	}
	if cur.ApprovalStatus != prev.ApprovalStatus || cur.Lifecycle != prev.Lifecycle {
		return model.ErrInvalidTransition
	}
	stored := cloneEvent(next)
	stored.ApprovalStatus = cur.ApprovalStatus
	stored.OrganizerID = cur.OrganizerID
	stored.CreatedAt = cur.CreatedAt
	m.events[next.ID] = stored
	return nil
}

func (m *Memory) SetApproval(_ context.Context, id string, from, to model.ApprovalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return model.ErrNotFound
	}
	if e.ApprovalStatus != from {
		return model.ErrInvalidTransition
	}
	e.ApprovalStatus = to
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return model.ErrNotFound
	}
	m.deleteEventLocked(id)
	return nil
}

func (m *Memory) deleteEventLocked(id string) {
	for rid, r := range m.regs {
		if r.EventID == id {
			delete(m.regs, rid)
		}
	}
	delete(m.events, id)
}

func (m *Memory) summarize(e *model.Event, viewerID string) model.EventSummary {
	active, registered := 0, false
	for _, r := range m.regs {
		if r.EventID != e.ID || !r.Status.Active() {
			continue
		}
		active++
		if viewerID != "" && r.StudentID == viewerID {
			registered = true
		}
	}
	name := ""
	if u, ok := m.users[e.OrganizerID]; ok {
		name = u.Name
	}
	return model.Summarize(*cloneEvent(e), name, active, registered)
}

// ─── registrations ───────────────────────────────────────────────────────────

func (m *Memory) Register(_ context.Context, eventID, studentID string, now time.Time) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[eventID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if _, ok := m.users[studentID]; !ok {
		return nil, model.ErrNotFound
	}

	active, own := 0, 0
	for _, r := range m.regs {
		if r.EventID != eventID || !r.Status.Active() {
			continue
		}
		active++
		if r.StudentID == studentID {
			own++
		}
	}
	if err := model.CheckRegistrable(e, now, active, own > 0); err != nil {
		return nil, err
	}

	reg := &model.Registration{
		ID:               uuid.New().String(),
		EventID:          eventID,
		StudentID:        studentID,
		RegistrationDate: now.UTC(),
		Status:           model.RegistrationRegistered,
	}
	stored := *reg
	m.regs[reg.ID] = &stored
	return reg, nil
}

func (m *Memory) GetRegistration(_ context.Context, id string) (*model.RegistrationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	d := m.detail(r)
	return &d, nil
}

func (m *Memory) SetRegistrationStatus(_ context.Context, id string, from, to model.RegistrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regs[id]
	if !ok {
		return model.ErrNotFound
	}
	if r.Status != from {
		return model.ErrInvalidTransition
	}
	r.Status = to
	return nil
}

func (m *Memory) ListRegistrations(_ context.Context, f model.RegistrationFilter) ([]model.RegistrationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.RegistrationDetail{}
	for _, r := range m.regs {
		d := m.detail(r)
		switch {
		case f.EventID != "" && d.EventID != f.EventID,
			f.StudentID != "" && d.StudentID != f.StudentID,
			f.OrganizerID != "" && d.OrganizerID != f.OrganizerID,
			f.Status != "" && d.Status != f.Status,
			!model.MatchesSearch(f.Search, d.EventTitle, d.StudentName, d.StudentEmail):
			continue
		}
		out = append(out, d)
	}
	desc := f.Order != model.OrderAsc
	slices.SortStableFunc(out, func(a, b model.RegistrationDetail) int {
		return ordered(a.RegistrationDate.Compare(b.RegistrationDate), a.ID, b.ID, desc)
	})
	return out, nil
}

func (m *Memory) detail(r *model.Registration) model.RegistrationDetail {
	d := model.RegistrationDetail{Registration: *r}
	if e, ok := m.events[r.EventID]; ok {
		d.EventTitle = e.Title
		d.EventDate = e.Date
		d.EventTime = e.Time
		d.Location = e.Location
		d.OrganizerID = e.OrganizerID
	}
	if u, ok := m.users[r.StudentID]; ok {
		d.StudentName = u.Name
		d.StudentEmail = u.Email
	}
	return d
}

// ─── reports ─────────────────────────────────────────────────────────────────

func (m *Memory) Stats(_ context.Context, organizerID string) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &model.Stats{
		EventsByApproval:      model.CountByKey{},
		EventsByLifecycle:     model.CountByKey{},
		RegistrationsByStatus: model.CountByKey{},
	}
	if organizerID == "" {
		stats.UsersByRole = model.CountByKey{}
		for _, u := range m.users {
			stats.UsersByRole[string(u.Role)]++
			stats.TotalUsers++
		}
	}
	for _, e := range m.events {
		if organizerID != "" && e.OrganizerID != organizerID {
			continue
		}
		stats.EventsByApproval[string(e.ApprovalStatus)]++
		stats.EventsByLifecycle[string(e.Lifecycle)]++
		stats.TotalEvents++
	}
	for _, r := range m.regs {
		e, ok := m.events[r.EventID]
		if !ok || (organizerID != "" && e.OrganizerID != organizerID) {
			continue
		}
		stats.RegistrationsByStatus[string(r.Status)]++
		stats.TotalRegistrations++
	}

	stats.TopEvents = m.listEventsLocked(model.EventFilter{
		Approval:    model.ApprovalApproved,
		OrganizerID: organizerID,
		Sort:        model.SortByRegistrations,
		Order:       model.OrderDesc,
		Limit:       TopEventsLimit,
	})
	stats.RecentEvents = m.listEventsLocked(model.EventFilter{
		OrganizerID: organizerID,
		Sort:        model.SortByCreated,
		Order:       model.OrderDesc,
		Limit:       RecentEventsLimit,
	})
	return stats, nil
}

func cloneEvent(e *model.Event) *model.Event {
	out := *e
	if e.Capacity != nil {
		c := *e.Capacity
		out.Capacity = &c
	}
	return &out
}

// ordered applies direction to c and breaks ties by ID so listings are stable.
func ordered(c int, idA, idB string, desc bool) int {
	if desc {
		c = -c
	}
	return cmpOr(c, strings.Compare(idA, idB))
}

// cmpOr mirrors the standard library's cmp.Or (Go 1.22+) for the Go 1.21 toolchain.
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}
