package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AppointmentModel handles appointment-specific database operations
type AppointmentModel struct {
	store Store
}

// NewAppointmentModel creates a new appointment model instance
func NewAppointmentModel(store Store) *AppointmentModel {
	return &AppointmentModel{store: store}
}

// Create validates and stores a new appointment
func (am *AppointmentModel) Create(ctx context.Context, a *Appointment) error {
	if a.PatientID == "" {
		return fmt.Errorf("%w: patient is required", ErrValidation)
	}
	if a.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if a.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	if err := validAppointmentStatus(a.Status); err != nil {
		return err
	}

	a.ID = uuid.NewString()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := am.store.Insert(ctx, KindAppointment, a.ID, a); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	log.Info().Str("appointment", a.ID).Str("patient", a.PatientID).Msg("Appointment created")
	return nil
}

// GetByID retrieves an appointment by ID
func (am *AppointmentModel) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var a Appointment
	if err := am.store.Get(ctx, KindAppointment, id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update applies reschedule/status changes
func (am *AppointmentModel) Update(ctx context.Context, id string, upd *Appointment) (*Appointment, error) {
	existing, err := am.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !upd.Date.IsZero() {
		existing.Date = upd.Date
	}
	if upd.Reason != "" {
		existing.Reason = upd.Reason
	}
	if upd.DoctorID != "" {
		existing.DoctorID = upd.DoctorID
	}
	if upd.Status != "" {
		if err := validAppointmentStatus(upd.Status); err != nil {
			return nil, err
		}
		existing.Status = upd.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := am.store.Upsert(ctx, KindAppointment, id, existing); err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return existing, nil
}

// Delete removes an appointment
func (am *AppointmentModel) Delete(ctx context.Context, id string) error {
	return am.store.Remove(ctx, KindAppointment, id)
}

// List retrieves all appointments, newest date first
func (am *AppointmentModel) List(ctx context.Context) ([]Appointment, error) {
	return am.find(ctx, Query{Sort: Sort{Field: "date", Desc: true}})
}

// ListByPatient retrieves a patient's appointments, newest date first
func (am *AppointmentModel) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return am.find(ctx, Query{
		Filter: Filter{All: []Cond{{Field: "patient", Op: OpEq, Value: patientID}}},
		Sort:   Sort{Field: "date", Desc: true},
	})
}

// ListUpcoming retrieves appointments on or after the given time whose
// status is not the excluded one, soonest first
func (am *AppointmentModel) ListUpcoming(ctx context.Context, from time.Time, excludeStatus string, limit int) ([]Appointment, error) {
	return am.find(ctx, Query{
		Filter: Filter{All: []Cond{
			{Field: "date", Op: OpGte, Value: from},
			{Field: "status", Op: OpNe, Value: excludeStatus},
		}},
		Sort:  Sort{Field: "date"},
		Limit: limit,
	})
}

// ListBetween retrieves appointments within the inclusive date range
func (am *AppointmentModel) ListBetween(ctx context.Context, start, end time.Time) ([]Appointment, error) {
	return am.find(ctx, Query{
		Filter: Filter{All: []Cond{
			{Field: "date", Op: OpGte, Value: start},
			{Field: "date", Op: OpLte, Value: end},
		}},
	})
}

// CountBetween counts appointments within the inclusive date range
func (am *AppointmentModel) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	return am.store.Count(ctx, KindAppointment, Filter{All: []Cond{
		{Field: "date", Op: OpGte, Value: start},
		{Field: "date", Op: OpLte, Value: end},
	}})
}

// CountAll returns the total number of appointments
func (am *AppointmentModel) CountAll(ctx context.Context) (int, error) {
	return am.store.Count(ctx, KindAppointment, Filter{})
}

func (am *AppointmentModel) find(ctx context.Context, q Query) ([]Appointment, error) {
	docs, err := am.store.Find(ctx, KindAppointment, q)
	if err != nil {
		return nil, err
	}

	appointments := make([]Appointment, 0, len(docs))
	for _, doc := range docs {
		var a Appointment
		if err := json.Unmarshal(doc.Body, &a); err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("Failed to decode appointment")
			continue
		}
		appointments = append(appointments, a)
	}
	return appointments, nil
}

func validAppointmentStatus(status string) error {
	switch status {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled:
		return nil
	}
	return fmt.Errorf("%w: unknown appointment status %q", ErrValidation, status)
}
