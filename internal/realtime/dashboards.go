package realtime

import (
	"context"

	"github.com/spec-kit/hospital-ops/internal/changefeed"
	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/repository"
)

// Dashboard names.
const (
	DoctorDashboard  = "doctor"
	StaffDashboard   = "staff"
	PatientDashboard = "patient"
)

// Query identifiers shared by the dashboards.
const (
	QueryActiveEmergencies QueryID = "active_emergencies"
	QueryTreatmentQueue    QueryID = "treatment_queue"
	QueryMyShift           QueryID = "my_shift"
	QueryOnDutyDoctors     QueryID = "on_duty_doctors"
	QueryHelpRequests      QueryID = "help_requests"
	QueryStats             QueryID = "stats"
	QueryAppointments      QueryID = "appointments"
	QueryMyTreatments      QueryID = "my_treatments"
)

const listLimit = 100

// Sources are the read paths the dashboards refetch from.
type Sources struct {
	Emergencies  repository.EmergencyRepository
	Treatments   repository.TreatmentRepository
	Shifts       repository.ShiftRepository
	HelpRequests repository.HelpRequestRepository
	Appointments repository.AppointmentRepository
	// Stats returns the current dashboard counters.
	Stats func(ctx context.Context) (any, error)
}

var openHelpStatuses = []domain.HelpRequestStatus{domain.HelpRequestPending, domain.HelpRequestAssigned}

// DoctorDefinition is the view of a signed-in doctor.
func DoctorDefinition(src Sources, doctorID string) Definition {
	mine := &changefeed.Filter{Column: "doctor_id", Value: doctorID}
	return Definition{
		Name: DoctorDashboard,
		Bindings: []Binding{
			{Table: "emergencies", Queries: []QueryID{QueryActiveEmergencies}},
			{Table: "treatment_queue", Filter: mine, Queries: []QueryID{QueryTreatmentQueue}},
			{Table: "doctor_shifts", Filter: mine, Queries: []QueryID{QueryMyShift}},
			{
				Table:    "help_requests",
				Relevant: columnIn("status", string(domain.HelpRequestPending), string(domain.HelpRequestAssigned)),
				Queries:  []QueryID{QueryHelpRequests},
			},
		},
		Queries: map[QueryID]Query{
			QueryActiveEmergencies: func(ctx context.Context) (any, error) {
				return src.Emergencies.ListActive(ctx)
			},
			QueryTreatmentQueue: func(ctx context.Context) (any, error) {
				return src.Treatments.List(ctx, repository.TreatmentFilter{DoctorID: &doctorID, Limit: listLimit})
			},
			QueryMyShift: func(ctx context.Context) (any, error) {
				shift, err := src.Shifts.GetByDoctor(ctx, doctorID)
				if repository.IsNotFound(err) {
					return nil, nil
				}
				return shift, err
			},
			QueryHelpRequests: func(ctx context.Context) (any, error) {
				return src.HelpRequests.List(ctx, repository.HelpRequestFilter{Statuses: openHelpStatuses, Limit: listLimit})
			},
		},
	}
}

// StaffDefinition is the coordination view used by staff.
func StaffDefinition(src Sources) Definition {
	return Definition{
		Name: StaffDashboard,
		Bindings: []Binding{
			{Table: "emergencies", Queries: []QueryID{QueryActiveEmergencies, QueryStats}},
			{Table: "treatment_queue", Queries: []QueryID{QueryTreatmentQueue, QueryStats}},
			{Table: "doctor_shifts", Queries: []QueryID{QueryOnDutyDoctors, QueryStats}},
			{Table: "help_requests", Queries: []QueryID{QueryHelpRequests}},
			{
				Table:    "profiles",
				Relevant: columnIn("role", string(domain.RoleDoctor)),
				Queries:  []QueryID{QueryStats},
			},
			{Table: "appointments", Queries: []QueryID{QueryStats}},
		},
		Queries: map[QueryID]Query{
			QueryActiveEmergencies: func(ctx context.Context) (any, error) {
				return src.Emergencies.ListActive(ctx)
			},
			QueryTreatmentQueue: func(ctx context.Context) (any, error) {
				return src.Treatments.List(ctx, repository.TreatmentFilter{Limit: listLimit})
			},
			QueryOnDutyDoctors: func(ctx context.Context) (any, error) {
				return src.Shifts.ListOnDuty(ctx)
			},
			QueryHelpRequests: func(ctx context.Context) (any, error) {
				return src.HelpRequests.List(ctx, repository.HelpRequestFilter{Limit: listLimit})
			},
			QueryStats: src.Stats,
		},
	}
}

// PatientDefinition is the view of a signed-in patient.
func PatientDefinition(src Sources, patientID string) Definition {
	mine := &changefeed.Filter{Column: "patient_id", Value: patientID}
	return Definition{
		Name: PatientDashboard,
		Bindings: []Binding{
			{Table: "appointments", Filter: mine, Queries: []QueryID{QueryAppointments}},
			{Table: "treatment_queue", Filter: mine, Queries: []QueryID{QueryMyTreatments}},
		},
		Queries: map[QueryID]Query{
			QueryAppointments: func(ctx context.Context) (any, error) {
				return src.Appointments.ListByPatient(ctx, patientID, listLimit)
			},
			QueryMyTreatments: func(ctx context.Context) (any, error) {
				return src.Treatments.List(ctx, repository.TreatmentFilter{PatientID: &patientID, IncludeCompleted: true, Limit: listLimit})
			},
		},
	}
}

// DefinitionFor picks the dashboard for a profile's role.
func DefinitionFor(src Sources, profile domain.Profile) Definition {
	switch profile.Role {
	case domain.RoleDoctor:
		return DoctorDefinition(src, profile.UserID)
	case domain.RolePatient:
		return PatientDefinition(src, profile.UserID)
	default:
		return StaffDefinition(src)
	}
}

// columnIn accepts events whose old or new row has column in values. Events without a
// row image are accepted since their relevance cannot be decided.
func columnIn(column string, values ...string) func(changefeed.ChangeEvent) bool {
	return func(ev changefeed.ChangeEvent) bool {
		if ev.Old == nil && ev.New == nil {
			return true
		}
		for _, row := range []map[string]any{ev.Old, ev.New} {
			v, ok := row[column].(string)
			if !ok {
				continue
			}
			for _, want := range values {
				if v == want {
					return true
				}
			}
		}
		return false
	}
}
