package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"clinicdesk.io/clinicdesk/internal/dal"
)

type apiFixture struct {
	server            *Server
	router            *mux.Router
	adminToken        string
	doctorToken       string
	receptionistToken string
	doctorID          string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	server := NewServer(dal.NewMemoryStore(), nil, testAuthConfig())
	ctx := context.Background()

	seed := []dal.User{
		{Name: "Admin", Email: "admin@clinic.com", PasswordHash: "x", Role: dal.RoleAdmin, IsActive: true},
		{Name: "Dr. Chen", Email: "chen@clinic.com", PasswordHash: "x", Role: dal.RoleDoctor, IsActive: true},
		{Name: "Front Desk", Email: "desk@clinic.com", PasswordHash: "x", Role: dal.RoleReceptionist, IsActive: true},
	}
	tokens := make([]string, len(seed))
	for i := range seed {
		if err := server.Users().Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Failed to seed user %s: %v", seed[i].Email, err)
		}
		token, err := issueSessionToken(server.auth, seed[i].ID, seed[i].Name, seed[i].Email, seed[i].Role)
		if err != nil {
			t.Fatalf("Failed to issue token for %s: %v", seed[i].Email, err)
		}
		tokens[i] = token
	}

	return &apiFixture{
		server:            server,
		router:            server.SetupRoutes(),
		adminToken:        tokens[0],
		doctorToken:       tokens[1],
		receptionistToken: tokens[2],
		doctorID:          seed[1].ID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %s: %v", rr.Body.String(), err)
	}
}

func (f *apiFixture) createPrescription(t *testing.T) dal.Prescription {
	t.Helper()
	rr := f.do(t, "POST", "/prescriptions", f.doctorToken, map[string]interface{}{
		"patient": "patient-1",
		"doctor":  f.doctorID,
		"visit":   "visit-1",
		"medications": []map[string]string{
			{"name": "Amoxicillin", "dosage": "500mg", "frequency": "3x daily", "duration": "7 days"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating prescription, got %d: %s", rr.Code, rr.Body.String())
	}
	var p dal.Prescription
	decodeBody(t, rr, &p)
	return p
}

func TestPrescriptionLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	v1 := f.createPrescription(t)
	if v1.Version != 1 {
		t.Errorf("Expected version 1, got %d", v1.Version)
	}

	// Amend appends version 2 and supersedes version 1
	rr := f.do(t, "PUT", "/prescriptions/"+v1.ID, f.doctorToken, map[string]interface{}{
		"notes": "Switch to liquid form",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 amending, got %d: %s", rr.Code, rr.Body.String())
	}
	var v2 dal.Prescription
	decodeBody(t, rr, &v2)
	if v2.Version != 2 || v2.PreviousVersion != v1.ID {
		t.Errorf("Expected version 2 linked to v1, got %+v", v2)
	}
	if len(v2.Medications) != 1 || v2.Medications[0].Name != "Amoxicillin" {
		t.Errorf("Medications must be copied forward on a notes-only amend")
	}

	// Amending the already-superseded version conflicts
	rr = f.do(t, "PUT", "/prescriptions/"+v1.ID, f.doctorToken, map[string]interface{}{})
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 amending a superseded version, got %d", rr.Code)
	}

	// History from v1: both versions plus the audit trail of v1
	rr = f.do(t, "GET", "/prescriptions/"+v1.ID+"/history", f.receptionistToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 reading history, got %d", rr.Code)
	}
	var history PrescriptionHistory
	decodeBody(t, rr, &history)
	if len(history.Versions) != 2 {
		t.Errorf("Expected 2 versions in history, got %d", len(history.Versions))
	}
	if len(history.Audit) != 1 {
		t.Errorf("Expected the CREATE audit entry for v1, got %d entries", len(history.Audit))
	}

	// Current listing shows only v2
	rr = f.do(t, "GET", "/prescriptions?patient=patient-1", f.receptionistToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 listing, got %d", rr.Code)
	}
	var current []dal.Prescription
	decodeBody(t, rr, &current)
	if len(current) != 1 || current[0].ID != v2.ID {
		t.Errorf("Expected only v2 to be current, got %d versions", len(current))
	}

	// Retract is admin-only
	rr = f.do(t, "DELETE", "/prescriptions/"+v2.ID, f.adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 retracting as admin, got %d", rr.Code)
	}

	rr = f.do(t, "GET", "/prescriptions?patient=patient-1", f.receptionistToken, nil)
	decodeBody(t, rr, &current)
	if len(current) != 0 {
		t.Errorf("Expected no current versions after retraction, got %d", len(current))
	}
}

func TestPrescriptionRBACOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	v1 := f.createPrescription(t)

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{"Receptionist cannot create", "POST", "/prescriptions", f.receptionistToken, http.StatusForbidden},
		{"Admin cannot create", "POST", "/prescriptions", f.adminToken, http.StatusForbidden},
		{"Receptionist cannot amend", "PUT", "/prescriptions/" + v1.ID, f.receptionistToken, http.StatusForbidden},
		{"Doctor cannot retract", "DELETE", "/prescriptions/" + v1.ID, f.doctorToken, http.StatusForbidden},
		{"Receptionist cannot retract", "DELETE", "/prescriptions/" + v1.ID, f.receptionistToken, http.StatusForbidden},
		{"Receptionist reads current", "GET", "/prescriptions", f.receptionistToken, http.StatusOK},
		{"Doctor reads one", "GET", "/prescriptions/" + v1.ID, f.doctorToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, tt.token, map[string]interface{}{})
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPrescriptionCreateRejectsNonDoctorReference(t *testing.T) {
	f := newAPIFixture(t)

	rr := f.do(t, "POST", "/prescriptions", f.doctorToken, map[string]interface{}{
		"patient": "patient-1",
		"doctor":  "not-a-doctor",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for a non-doctor reference, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestPrescriptionNotFoundOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rr := f.do(t, "PUT", "/prescriptions/missing", f.doctorToken, map[string]interface{}{})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 amending a missing prescription, got %d", rr.Code)
	}

	rr = f.do(t, "GET", "/prescriptions/missing/history", f.doctorToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing history, got %d", rr.Code)
	}
}
