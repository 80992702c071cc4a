package api

import "clinicdesk.io/clinicdesk/internal/dal"

// Policy actions
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Policy resources
const (
	ResourcePatient      = "patient"
	ResourceAppointment  = "appointment"
	ResourceVisit        = "visit"
	ResourcePrescription = "prescription"
)

// Allow is the single policy decision point. Every handler that mutates
// state asks here before touching the store, so role rules live in one
// place instead of being scattered across routes.
func Allow(action, resource, role string) bool {
	switch role {
	case dal.RoleAdmin, dal.RoleDoctor, dal.RoleReceptionist:
	default:
		return false
	}

	if action == ActionRead {
		return true
	}

	switch resource {
	case ResourcePrescription:
		switch action {
		case ActionCreate:
			return role == dal.RoleDoctor
		case ActionUpdate:
			return role == dal.RoleDoctor || role == dal.RoleAdmin
		case ActionDelete:
			return role == dal.RoleAdmin
		}
	case ResourceVisit:
		switch action {
		case ActionCreate:
			return role == dal.RoleDoctor
		case ActionUpdate, ActionDelete:
			return role == dal.RoleDoctor || role == dal.RoleAdmin
		}
	case ResourcePatient, ResourceAppointment:
		return role == dal.RoleAdmin || role == dal.RoleReceptionist
	}
	return false
}
