package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PatientModel handles patient-specific database operations
type PatientModel struct {
	store Store
}

// NewPatientModel creates a new patient model instance
func NewPatientModel(store Store) *PatientModel {
	return &PatientModel{store: store}
}

// PatientPage is a paginated patient listing
type PatientPage struct {
	Patients []Patient `json:"patients"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}

// Create validates and stores a new patient
func (pm *PatientModel) Create(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrValidation)
	}
	if p.DateOfBirth == "" {
		return fmt.Errorf("%w: date of birth is required", ErrValidation)
	}
	if p.Gender == "" {
		return fmt.Errorf("%w: gender is required", ErrValidation)
	}
	if p.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}

	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := pm.store.Insert(ctx, KindPatient, p.ID, p); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}

	log.Info().Str("patient", p.ID).Msg("Patient created")
	return nil
}

// GetByID retrieves a patient by ID
func (pm *PatientModel) GetByID(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	if err := pm.store.Get(ctx, KindPatient, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update overwrites a patient's editable fields
func (pm *PatientModel) Update(ctx context.Context, id string, upd *Patient) (*Patient, error) {
	existing, err := pm.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != "" {
		existing.FirstName = upd.FirstName
	}
	if upd.LastName != "" {
		existing.LastName = upd.LastName
	}
	if upd.DateOfBirth != "" {
		existing.DateOfBirth = upd.DateOfBirth
	}
	if upd.Gender != "" {
		existing.Gender = upd.Gender
	}
	if upd.Phone != "" {
		existing.Phone = upd.Phone
	}
	if upd.Email != "" {
		existing.Email = upd.Email
	}
	if upd.Address != "" {
		existing.Address = upd.Address
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := pm.store.Upsert(ctx, KindPatient, id, existing); err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return existing, nil
}

// Delete removes a patient document. References from appointments,
// visits and prescriptions are left in place.
func (pm *PatientModel) Delete(ctx context.Context, id string) error {
	return pm.store.Remove(ctx, KindPatient, id)
}

// List retrieves a paginated, optionally searched patient page. The
// search term matches first name, last name or phone, case-insensitive.
func (pm *PatientModel) List(ctx context.Context, page, limit int, search string) (*PatientPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 5
	}

	var filter Filter
	if search != "" {
		filter.Any = []Cond{
			{Field: "firstName", Op: OpContains, Value: search},
			{Field: "lastName", Op: OpContains, Value: search},
			{Field: "phone", Op: OpContains, Value: search},
		}
	}

	total, err := pm.store.Count(ctx, KindPatient, filter)
	if err != nil {
		return nil, err
	}

	docs, err := pm.store.Find(ctx, KindPatient, Query{
		Filter: filter,
		Sort:   Sort{Field: "createdAt", Desc: true},
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	patients := make([]Patient, 0, len(docs))
	for _, doc := range docs {
		var p Patient
		if err := json.Unmarshal(doc.Body, &p); err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("Failed to decode patient")
			continue
		}
		patients = append(patients, p)
	}

	pages := (total + limit - 1) / limit
	log.Debug().
		Int("page", page).
		Int("limit", limit).
		Str("search", search).
		Int("total", total).
		Msg("Patients listed")

	return &PatientPage{Patients: patients, Total: total, Page: page, Pages: pages}, nil
}

// CountAll returns the total number of patients
func (pm *PatientModel) CountAll(ctx context.Context) (int, error) {
	return pm.store.Count(ctx, KindPatient, Filter{})
}

// ParsePagination normalizes page/limit query parameters
func ParsePagination(pageStr, limitStr string, defaultLimit int) (int, int) {
	page := 1
	limit := defaultLimit

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	return page, limit
}
