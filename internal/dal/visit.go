package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VisitModel handles visit-specific database operations
type VisitModel struct {
	store Store
}

// NewVisitModel creates a new visit model instance
func NewVisitModel(store Store) *VisitModel {
	return &VisitModel{store: store}
}

// Create validates and stores a new visit
func (vm *VisitModel) Create(ctx context.Context, v *Visit) error {
	if v.PatientID == "" {
		return fmt.Errorf("%w: patient is required", ErrValidation)
	}
	if v.DoctorID == "" {
		return fmt.Errorf("%w: doctor is required", ErrValidation)
	}
	if v.Diagnosis == "" {
		return fmt.Errorf("%w: diagnosis is required", ErrValidation)
	}

	v.ID = uuid.NewString()
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.AISummary = ""

	if err := vm.store.Insert(ctx, KindVisit, v.ID, v); err != nil {
		return fmt.Errorf("create visit: %w", err)
	}

	log.Info().Str("visit", v.ID).Str("patient", v.PatientID).Msg("Visit recorded")
	return nil
}

// GetByID retrieves a visit by ID
func (vm *VisitModel) GetByID(ctx context.Context, id string) (*Visit, error) {
	var v Visit
	if err := vm.store.Get(ctx, KindVisit, id, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Update overwrites a visit's editable fields
func (vm *VisitModel) Update(ctx context.Context, id string, upd *Visit) (*Visit, error) {
	existing, err := vm.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Diagnosis != "" {
		existing.Diagnosis = upd.Diagnosis
	}
	if upd.PrescriptionText != "" {
		existing.PrescriptionText = upd.PrescriptionText
	}
	if upd.Notes != "" {
		existing.Notes = upd.Notes
	}
	if upd.FollowUpDate != nil {
		existing.FollowUpDate = upd.FollowUpDate
	}
	if upd.DoctorID != "" {
		existing.DoctorID = upd.DoctorID
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := vm.store.Upsert(ctx, KindVisit, id, existing); err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}
	return existing, nil
}

// Delete removes a visit document
func (vm *VisitModel) Delete(ctx context.Context, id string) error {
	return vm.store.Remove(ctx, KindVisit, id)
}

// List retrieves all visits, newest first
func (vm *VisitModel) List(ctx context.Context) ([]Visit, error) {
	return vm.find(ctx, Query{Sort: Sort{Field: "createdAt", Desc: true}})
}

// ListByPatient retrieves a patient's visits, newest first
func (vm *VisitModel) ListByPatient(ctx context.Context, patientID string) ([]Visit, error) {
	return vm.find(ctx, Query{
		Filter: Filter{All: []Cond{{Field: "patient", Op: OpEq, Value: patientID}}},
		Sort:   Sort{Field: "createdAt", Desc: true},
	})
}

// Recent retrieves the most recent visits
func (vm *VisitModel) Recent(ctx context.Context, limit int) ([]Visit, error) {
	return vm.find(ctx, Query{
		Sort:  Sort{Field: "createdAt", Desc: true},
		Limit: limit,
	})
}

// ListBetween retrieves visits created within the inclusive range
func (vm *VisitModel) ListBetween(ctx context.Context, start, end time.Time) ([]Visit, error) {
	return vm.find(ctx, Query{
		Filter: Filter{All: []Cond{
			{Field: "createdAt", Op: OpGte, Value: start},
			{Field: "createdAt", Op: OpLte, Value: end},
		}},
	})
}

// CountAll returns the total number of visits
func (vm *VisitModel) CountAll(ctx context.Context) (int, error) {
	return vm.store.Count(ctx, KindVisit, Filter{})
}

// UpdateSummary caches a generated summary on the visit without touching
// any other field. The raw document is patched so a concurrent edit to
// the clinical fields is not clobbered by stale struct data.
func (vm *VisitModel) UpdateSummary(ctx context.Context, id, summary string) error {
	raw := make(map[string]interface{})
	if err := vm.store.Get(ctx, KindVisit, id, &raw); err != nil {
		return err
	}
	raw["aiSummary"] = summary

	if err := vm.store.Upsert(ctx, KindVisit, id, raw); err != nil {
		return fmt.Errorf("cache summary on visit %s: %w", id, err)
	}

	log.Debug().Str("visit", id).Msg("Visit summary cached")
	return nil
}

func (vm *VisitModel) find(ctx context.Context, q Query) ([]Visit, error) {
	docs, err := vm.store.Find(ctx, KindVisit, q)
	if err != nil {
		return nil, err
	}

	visits := make([]Visit, 0, len(docs))
	for _, doc := range docs {
		var v Visit
		if err := json.Unmarshal(doc.Body, &v); err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("Failed to decode visit")
			continue
		}
		visits = append(visits, v)
	}
	return visits, nil
}
