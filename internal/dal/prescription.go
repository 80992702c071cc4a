package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PrescriptionModel maintains the append-only, versioned prescription
// chains. Editing never mutates clinical content in place: the prior
// current version is flagged superseded and a new linked version is
// inserted. The supersede write is CAS-guarded so two concurrent amends
// of the same version cannot both succeed.
type PrescriptionModel struct {
	store Store
	audit *AuditModel
}

// NewPrescriptionModel creates a new prescription model instance
func NewPrescriptionModel(store Store, audit *AuditModel) *PrescriptionModel {
	return &PrescriptionModel{store: store, audit: audit}
}

// AmendRequest is a partial update. Nil fields are copied forward from
// the version being amended.
type AmendRequest struct {
	Medications []Medication `json:"medications"`
	Notes       *string      `json:"notes"`
}

// Create stores the root version of a new chain and audits it. The
// caller is responsible for checking that the doctor reference resolves
// to a user with the doctor role.
func (pm *PrescriptionModel) Create(ctx context.Context, p *Prescription, actorID string) error {
	if p.PatientID == "" {
		return fmt.Errorf("%w: patient is required", ErrValidation)
	}
	if p.DoctorID == "" {
		return fmt.Errorf("%w: doctor is required", ErrValidation)
	}

	p.ID = uuid.NewString()
	p.Version = 1
	p.PreviousVersion = ""
	p.IsSuperseded = false
	p.IsDeleted = false
	if p.Medications == nil {
		p.Medications = []Medication{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := pm.store.Insert(ctx, KindPrescription, p.ID, p); err != nil {
		return fmt.Errorf("create prescription: %w", err)
	}

	if err := pm.audit.Append(ctx, AuditCreate, "Prescription", p.ID, actorID, map[string]interface{}{
		"patient": p.PatientID,
		"doctor":  p.DoctorID,
	}); err != nil {
		return err
	}

	log.Info().Str("prescription", p.ID).Str("patient", p.PatientID).Msg("Prescription created")
	return nil
}

// GetByID retrieves a single prescription version
func (pm *PrescriptionModel) GetByID(ctx context.Context, id string) (*Prescription, error) {
	var p Prescription
	if err := pm.store.Get(ctx, KindPrescription, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Amend supersedes the target version and appends a new one. The
// supersede flag is written with a CAS-conditional replace: if the
// target changed since it was read (typically a concurrent amend), the
// operation fails with ErrCASMismatch and nothing is written. Fields
// absent from the request are copied forward unchanged.
func (pm *PrescriptionModel) Amend(ctx context.Context, id string, upd AmendRequest, actorID string) (*Prescription, error) {
	var target Prescription
	cas, err := pm.store.GetWithCAS(ctx, KindPrescription, id, &target)
	if err != nil {
		return nil, err
	}
	// A superseded or deleted version can never be amended again; that
	// would branch the chain and break the single-current invariant.
	if target.IsSuperseded {
		return nil, fmt.Errorf("amend prescription %s: %w", id, ErrCASMismatch)
	}
	if target.IsDeleted {
		return nil, fmt.Errorf("%w: cannot amend a deleted prescription", ErrValidation)
	}

	now := time.Now().UTC()
	next := target
	next.ID = uuid.NewString()
	next.Version = target.Version + 1
	next.PreviousVersion = target.ID
	next.IsSuperseded = false
	next.IsDeleted = false
	next.DeletedAt = nil
	next.DeletedBy = ""
	next.UpdatedBy = actorID
	next.CreatedAt = now
	next.UpdatedAt = now
	if upd.Medications != nil {
		next.Medications = upd.Medications
	}
	if upd.Notes != nil {
		next.Notes = *upd.Notes
	}

	// Only the supersede flag changes on the target; its clinical
	// content stays as read.
	target.IsSuperseded = true
	target.UpdatedAt = now
	if err := pm.store.Replace(ctx, KindPrescription, id, &target, cas); err != nil {
		return nil, fmt.Errorf("supersede prescription %s: %w", id, err)
	}

	if err := pm.store.Insert(ctx, KindPrescription, next.ID, &next); err != nil {
		return nil, fmt.Errorf("insert prescription version %d: %w", next.Version, err)
	}

	if err := pm.audit.Append(ctx, AuditUpdate, "Prescription", next.ID, actorID, map[string]interface{}{
		"previousVersion": target.ID,
		"version":         next.Version,
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("prescription", next.ID).
		Str("previousVersion", target.ID).
		Int("version", next.Version).
		Msg("Prescription amended")
	return &next, nil
}

// Retract soft-deletes one specific version. Sibling versions and chain
// linkage are untouched; nothing is un-superseded or renumbered. The
// caller must have verified the admin role before calling.
func (pm *PrescriptionModel) Retract(ctx context.Context, id, actorID string) error {
	var target Prescription
	cas, err := pm.store.GetWithCAS(ctx, KindPrescription, id, &target)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	target.IsDeleted = true
	target.DeletedAt = &now
	target.DeletedBy = actorID
	target.UpdatedAt = now

	if err := pm.store.Replace(ctx, KindPrescription, id, &target, cas); err != nil {
		return fmt.Errorf("retract prescription %s: %w", id, err)
	}

	if err := pm.audit.Append(ctx, AuditDelete, "Prescription", id, actorID, nil); err != nil {
		return err
	}

	log.Info().Str("prescription", id).Str("deletedBy", actorID).Msg("Prescription retracted")
	return nil
}

// Chain retrieves the version itself plus its immediate successors,
// ascending by version number. Traversal is one hop deep: callers
// needing the full history re-query per link.
func (pm *PrescriptionModel) Chain(ctx context.Context, id string) ([]Prescription, error) {
	return pm.find(ctx, Query{
		Filter: Filter{Any: []Cond{
			{Field: "_id", Op: OpEq, Value: id},
			{Field: "previousVersion", Op: OpEq, Value: id},
		}},
		Sort: Sort{Field: "version"},
	})
}

// ListCurrent retrieves the clinically-in-effect versions, optionally
// filtered by patient and/or visit, newest first.
func (pm *PrescriptionModel) ListCurrent(ctx context.Context, patientID, visitID string) ([]Prescription, error) {
	all := []Cond{
		{Field: "isDeleted", Op: OpEq, Value: false},
		{Field: "isSuperseded", Op: OpNe, Value: true},
	}
	if patientID != "" {
		all = append(all, Cond{Field: "patient", Op: OpEq, Value: patientID})
	}
	if visitID != "" {
		all = append(all, Cond{Field: "visit", Op: OpEq, Value: visitID})
	}

	return pm.find(ctx, Query{
		Filter: Filter{All: all},
		Sort:   Sort{Field: "createdAt", Desc: true},
	})
}

// ListForVisit retrieves all non-deleted versions referencing a visit,
// superseded ones included. Used when assembling visit summaries.
func (pm *PrescriptionModel) ListForVisit(ctx context.Context, visitID string) ([]Prescription, error) {
	return pm.find(ctx, Query{
		Filter: Filter{All: []Cond{
			{Field: "visit", Op: OpEq, Value: visitID},
			{Field: "isDeleted", Op: OpNe, Value: true},
		}},
		Sort: Sort{Field: "createdAt", Desc: true},
	})
}

func (pm *PrescriptionModel) find(ctx context.Context, q Query) ([]Prescription, error) {
	docs, err := pm.store.Find(ctx, KindPrescription, q)
	if err != nil {
		return nil, err
	}

	prescriptions := make([]Prescription, 0, len(docs))
	for _, doc := range docs {
		var p Prescription
		if err := json.Unmarshal(doc.Body, &p); err != nil {
			log.Warn().Err(err).Str("id", doc.ID).Msg("Failed to decode prescription")
			continue
		}
		prescriptions = append(prescriptions, p)
	}
	return prescriptions, nil
}
