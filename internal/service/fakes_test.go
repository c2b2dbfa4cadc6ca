package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

type fakeEmergencies struct {
	mu          sync.Mutex
	rows        map[string]*domain.Emergency
	failWrites  bool
	markCalls   int
	createCalls int
}

func newFakeEmergencies() *fakeEmergencies {
	return &fakeEmergencies{rows: map[string]*domain.Emergency{}}
}

func (f *fakeEmergencies) Create(_ context.Context, e *domain.Emergency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failWrites {
		return errStoreDown
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeEmergencies) GetByID(_ context.Context, id string) (*domain.Emergency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEmergencies) ListActive(context.Context) ([]domain.Emergency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Emergency
	for _, e := range f.rows {
		if !e.Resolved {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEmergencies) MarkResolved(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if f.failWrites {
		return false, errStoreDown
	}
	e, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	e.Resolved = true
	e.Status = domain.EmergencyStatusResolved
	return true, nil
}

type fakeProfiles struct {
	profiles map[string]domain.Profile
	emails   map[string]string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[string]domain.Profile{}, emails: map[string]string{}}
}

func (f *fakeProfiles) add(role domain.Role, email string) domain.Profile {
	p := domain.Profile{UserID: uuid.NewString(), Name: fmt.Sprintf("%s %d", role, len(f.profiles)+1), Role: role}
	f.profiles[p.UserID] = p
	if email != "" {
		f.emails[p.UserID] = email
	}
	return p
}

func (f *fakeProfiles) GetByUserID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (f *fakeProfiles) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, p := range f.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) EmailForUser(_ context.Context, id string) (string, error) {
	return f.emails[id], nil
}

type fakeTreatments struct {
	mu      sync.Mutex
	rows    map[string]*domain.TreatmentQueueEntry
	updates int
}

func newFakeTreatments() *fakeTreatments {
	return &fakeTreatments{rows: map[string]*domain.TreatmentQueueEntry{}}
}

func (f *fakeTreatments) Create(_ context.Context, e *domain.TreatmentQueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = uuid.NewString()
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeTreatments) GetByID(_ context.Context, id string) (*domain.TreatmentQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeTreatments) UpdateStatus(_ context.Context, e *domain.TreatmentQueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeTreatments) List(_ context.Context, filter repository.TreatmentFilter) ([]domain.TreatmentQueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TreatmentQueueEntry
	for _, e := range f.rows {
		if filter.DoctorID != nil && e.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.PatientID != nil && e.PatientID != *filter.PatientID {
			continue
		}
		if !filter.IncludeCompleted && e.Status == domain.TreatmentStatusCompleted {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

type fakeShifts struct {
	mu   sync.Mutex
	rows map[string]*domain.DoctorShift
}

func newFakeShifts() *fakeShifts {
	return &fakeShifts{rows: map[string]*domain.DoctorShift{}}
}

func (f *fakeShifts) Upsert(_ context.Context, s *domain.DoctorShift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[s.DoctorID]; ok {
		s.ID = existing.ID
	} else {
		s.ID = uuid.NewString()
	}
	s.UpdatedAt = time.Now()
	cp := *s
	f.rows[s.DoctorID] = &cp
	return nil
}

func (f *fakeShifts) GetByDoctor(_ context.Context, doctorID string) (*domain.DoctorShift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[doctorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeShifts) ListOnDuty(context.Context) ([]domain.DoctorShift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DoctorShift
	for _, s := range f.rows {
		if s.Status == domain.ShiftStatusOnDuty {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeHelpRequests struct {
	mu   sync.Mutex
	rows map[string]*domain.HelpRequest
}

func newFakeHelpRequests() *fakeHelpRequests {
	return &fakeHelpRequests{rows: map[string]*domain.HelpRequest{}}
}

func (f *fakeHelpRequests) Create(_ context.Context, r *domain.HelpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.NewString()
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeHelpRequests) GetByID(_ context.Context, id string) (*domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeHelpRequests) Update(_ context.Context, r *domain.HelpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeHelpRequests) List(_ context.Context, filter repository.HelpRequestFilter) ([]domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HelpRequest
	for _, r := range f.rows {
		if filter.RequestedBy != nil && r.RequestedBy != *filter.RequestedBy {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}
