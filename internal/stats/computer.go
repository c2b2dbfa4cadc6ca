// Package stats derives the cross-entity counts shown on the staff dashboard.
//
// The five counts are read by independent queries running concurrently. They are not
// taken from one snapshot, so under concurrent writes they may disagree with each other
// (for example onDutyDoctors briefly above totalDoctors). They settle once writes stop.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/hospital-ops/internal/domain"
)

// Stats is one computation of the dashboard counters.
type Stats struct {
	TotalDoctors       int       `json:"totalDoctors"`
	OnDutyDoctors      int       `json:"onDutyDoctors"`
	ActiveEmergencies  int       `json:"activeEmergencies"`
	PendingTreatments  int       `json:"pendingTreatments"`
	TodaysAppointments int       `json:"todaysAppointments"`
	ComputedAt         time.Time `json:"computedAt"`
}

// Counts returns the stats without the computation timestamp, for comparisons.
func (s Stats) Counts() [5]int {
	return [5]int{s.TotalDoctors, s.OnDutyDoctors, s.ActiveEmergencies, s.PendingTreatments, s.TodaysAppointments}
}

// Source is the store surface the computer reads.
type Source interface {
	CountProfilesByRole(ctx context.Context, role domain.Role) (int, error)
	CountShiftsByStatus(ctx context.Context, status domain.ShiftStatus) (int, error)
	CountActiveEmergencies(ctx context.Context) (int, error)
	CountUnfinishedTreatments(ctx context.Context) (int, error)
	CountAppointmentsOn(ctx context.Context, day time.Time) (int, error)
}

// Computer runs the count queries.
type Computer struct {
	source Source
	now    func() time.Time
	loc    *time.Location
}

// NewComputer builds a Computer. "Today" is evaluated in loc (UTC when nil).
func NewComputer(source Source, loc *time.Location) *Computer {
	if loc == nil {
		loc = time.UTC
	}
	return &Computer{source: source, now: time.Now, loc: loc}
}

// Compute runs the five counts concurrently. The first failure cancels the rest.
func (c *Computer) Compute(ctx context.Context) (Stats, error) {
	var s Stats
	today := c.now().In(c.loc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.TotalDoctors, err = c.source.CountProfilesByRole(gctx, domain.RoleDoctor)
		return wrap("total doctors", err)
	})
	g.Go(func() (err error) {
		s.OnDutyDoctors, err = c.source.CountShiftsByStatus(gctx, domain.ShiftStatusOnDuty)
		return wrap("on-duty doctors", err)
	})
	g.Go(func() (err error) {
		s.ActiveEmergencies, err = c.source.CountActiveEmergencies(gctx)
		return wrap("active emergencies", err)
	})
	g.Go(func() (err error) {
		s.PendingTreatments, err = c.source.CountUnfinishedTreatments(gctx)
		return wrap("pending treatments", err)
	})
	g.Go(func() (err error) {
		s.TodaysAppointments, err = c.source.CountAppointmentsOn(gctx, today)
		return wrap("todays appointments", err)
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	s.ComputedAt = c.now().UTC()
	return s, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("count %s: %w", what, err)
}
