package dal

import (
	"context"
	"encoding/json"
	"fmt"
)

// ClinicModel serves the singleton clinic profile document
type ClinicModel struct {
	store Store
}

// NewClinicModel creates a new clinic model instance
func NewClinicModel(store Store) *ClinicModel {
	return &ClinicModel{store: store}
}

// Get retrieves the clinic profile
func (cm *ClinicModel) Get(ctx context.Context) (*Clinic, error) {
	docs, err := cm.store.Find(ctx, KindClinic, Query{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	var c Clinic
	if err := json.Unmarshal(docs[0].Body, &c); err != nil {
		return nil, fmt.Errorf("decode clinic: %w", err)
	}
	return &c, nil
}
