package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"evcharge/backend/services/partnership-service/internal/models"
	"evcharge/backend/services/partnership-service/internal/repository"
)

type fakeLeads struct {
	mu        sync.Mutex
	nextID    int64
	leads     map[int64]*models.Lead
	users     map[int64]models.Assignee
	clock     func() time.Time
	lastQuery models.LeadFilter
	statsFrom time.Time
	err       error
}

func newFakeLeads(clock func() time.Time) *fakeLeads {
	return &fakeLeads{
		nextID: 1,
		leads:  make(map[int64]*models.Lead),
		users:  map[int64]models.Assignee{7: {ID: 7, Name: "Priya Admin", Email: "priya@evcharge.in"}},
		clock:  clock,
	}
}

func (f *fakeLeads) put(l models.Lead) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.ID == 0 {
		l.ID = f.nextID
	}
	if l.ID >= f.nextID {
		f.nextID = l.ID + 1
	}
	f.leads[l.ID] = &l
}

func (f *fakeLeads) Create(_ context.Context, lead *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	lead.ID = f.nextID
	f.nextID++
	lead.CreatedAt = f.clock()
	lead.UpdatedAt = lead.CreatedAt
	c := *lead
	f.leads[lead.ID] = &c
	return nil
}

func (f *fakeLeads) RecentByEmail(_ context.Context, email string, since time.Time) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.leads {
		if l.Email == email && !l.CreatedAt.Before(since) {
			c := *l
			return &c, nil
		}
	}
	return nil, repository.ErrLeadNotFound
}

func (f *fakeLeads) GetByID(_ context.Context, id int64) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, repository.ErrLeadNotFound
	}
	c := *l
	return &c, nil
}

func (f *fakeLeads) List(_ context.Context, filter models.LeadFilter) ([]models.Lead, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = filter
	if f.err != nil {
		return nil, 0, f.err
	}

	var out []models.Lead
	for _, l := range f.leads {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && l.Priority != filter.Priority {
			continue
		}
		if filter.PropertyType != "" && l.PropertyType != filter.PropertyType {
			continue
		}
		if s := strings.ToLower(filter.Search); s != "" &&
			!strings.Contains(strings.ToLower(l.Name+" "+l.Company+" "+l.Email+" "+l.Address), s) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})

	total := len(out)
	if filter.Limit > 0 {
		end := filter.Offset + filter.Limit
		if filter.Offset > total {
			filter.Offset = total
		}
		if end > total {
			end = total
		}
		out = out[filter.Offset:end]
	}
	return out, total, nil
}

func (f *fakeLeads) Update(_ context.Context, id int64, ch models.LeadChanges) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, repository.ErrLeadNotFound
	}
	if ch.AssignedTo != nil {
		u, ok := f.users[*ch.AssignedTo]
		if !ok {
			return nil, repository.ErrAssigneeNotFound
		}
		l.AssignedTo = &u
	}
	if ch.Status != nil {
		l.Status = *ch.Status
	}
	if ch.Priority != nil {
		l.Priority = *ch.Priority
	}
	if ch.Notes != nil {
		l.Notes = *ch.Notes
	}
	if ch.FollowUpDate != nil {
		t := *ch.FollowUpDate
		l.FollowUpDate = &t
	}
	l.UpdatedAt = f.clock()
	c := *l
	return &c, nil
}

func (f *fakeLeads) Stats(_ context.Context, since time.Time) (*models.LeadStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsFrom = since
	stats := &models.LeadStats{TotalSubmissions: len(f.leads)}
	for _, l := range f.leads {
		if !l.CreatedAt.Before(since) {
			stats.RecentSubmissions++
		}
	}
	return stats, nil
}
