package api

import (
	"testing"

	"clinicdesk.io/clinicdesk/internal/dal"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		resource string
		role     string
		expected bool
	}{
		{"Doctor creates prescription", ActionCreate, ResourcePrescription, dal.RoleDoctor, true},
		{"Admin cannot create prescription", ActionCreate, ResourcePrescription, dal.RoleAdmin, false},
		{"Receptionist cannot create prescription", ActionCreate, ResourcePrescription, dal.RoleReceptionist, false},
		{"Doctor amends prescription", ActionUpdate, ResourcePrescription, dal.RoleDoctor, true},
		{"Admin amends prescription", ActionUpdate, ResourcePrescription, dal.RoleAdmin, true},
		{"Receptionist cannot amend prescription", ActionUpdate, ResourcePrescription, dal.RoleReceptionist, false},
		{"Admin deletes prescription", ActionDelete, ResourcePrescription, dal.RoleAdmin, true},
		{"Doctor cannot delete prescription", ActionDelete, ResourcePrescription, dal.RoleDoctor, false},
		{"Doctor creates visit", ActionCreate, ResourceVisit, dal.RoleDoctor, true},
		{"Receptionist cannot create visit", ActionCreate, ResourceVisit, dal.RoleReceptionist, false},
		{"Receptionist manages patients", ActionCreate, ResourcePatient, dal.RoleReceptionist, true},
		{"Admin manages patients", ActionDelete, ResourcePatient, dal.RoleAdmin, true},
		{"Doctor cannot delete patients", ActionDelete, ResourcePatient, dal.RoleDoctor, false},
		{"Receptionist manages appointments", ActionUpdate, ResourceAppointment, dal.RoleReceptionist, true},
		{"Doctor cannot manage appointments", ActionCreate, ResourceAppointment, dal.RoleDoctor, false},
		{"Any role reads", ActionRead, ResourcePrescription, dal.RoleReceptionist, true},
		{"Unknown role denied everything", ActionRead, ResourcePatient, "intruder", false},
		{"Empty role denied", ActionCreate, ResourcePatient, "", false},
		{"Unknown resource denied", ActionCreate, "billing", dal.RoleAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allow(tt.action, tt.resource, tt.role)
			if got != tt.expected {
				t.Errorf("Allow(%s, %s, %s) = %v, expected %v", tt.action, tt.resource, tt.role, got, tt.expected)
			}
		})
	}
}
