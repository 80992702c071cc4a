package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clinicdesk.io/clinicdesk/internal/dal"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type summaryFixture struct {
	store         *dal.MemoryStore
	visits        *dal.VisitModel
	patients      *dal.PatientModel
	prescriptions *dal.PrescriptionModel
	patient       dal.Patient
	visit         dal.Visit
}

func newSummaryFixture(t *testing.T) *summaryFixture {
	t.Helper()
	store := dal.NewMemoryStore()
	visits := dal.NewVisitModel(store)
	patients := dal.NewPatientModel(store)
	audit := dal.NewAuditModel(store)
	prescriptions := dal.NewPrescriptionModel(store, audit)
	ctx := context.Background()

	patient := dal.Patient{
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1990-03-20",
		Gender:      "female",
		Phone:       "555-0101",
	}
	if err := patients.Create(ctx, &patient); err != nil {
		t.Fatalf("Failed to create patient: %v", err)
	}

	visit := dal.Visit{
		PatientID: patient.ID,
		DoctorID:  "doctor-1",
		Diagnosis: "Seasonal flu",
		Notes:     "Rest and fluids",
	}
	if err := visits.Create(ctx, &visit); err != nil {
		t.Fatalf("Failed to create visit: %v", err)
	}

	return &summaryFixture{
		store:         store,
		visits:        visits,
		patients:      patients,
		prescriptions: prescriptions,
		patient:       patient,
		visit:         visit,
	}
}

func (f *summaryFixture) generator(client Completer) *Generator {
	g := NewGenerator(f.visits, f.patients, f.prescriptions, client)
	g.now = func() time.Time { return time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC) }
	return g
}

func (f *summaryFixture) addPrescription(t *testing.T) {
	t.Helper()
	p := dal.Prescription{
		PatientID: f.patient.ID,
		DoctorID:  "doctor-1",
		VisitID:   f.visit.ID,
		Medications: []dal.Medication{
			{Name: "Oseltamivir", Dosage: "75mg", Frequency: "2x daily", Duration: "5 days"},
		},
	}
	if err := f.prescriptions.Create(context.Background(), &p, "doctor-1"); err != nil {
		t.Fatalf("Failed to create prescription: %v", err)
	}
}

func TestSummarizeFallbackWithoutCredential(t *testing.T) {
	f := newSummaryFixture(t)
	f.addPrescription(t)
	g := f.generator(nil)

	result, err := g.Summarize(context.Background(), f.visit.ID, false)
	if err != nil {
		t.Fatalf("Fallback path must not fail: %v", err)
	}

	if result.Warning != WarnNoCredential {
		t.Errorf("Expected no-credential warning, got %q", result.Warning)
	}
	if result.Source != SourceFallback {
		t.Errorf("Expected fallback source, got %s", result.Source)
	}

	for _, fragment := range []string{
		"Jane Doe",
		"Age: 36",
		"Seasonal flu",
		"Rest and fluids",
		"Oseltamivir - 75mg - 2x daily - 5 days",
	} {
		if !strings.Contains(result.Summary, fragment) {
			t.Errorf("Fallback summary missing %q:\n%s", fragment, result.Summary)
		}
	}

	// The fallback is cached on the visit
	stored, err := f.visits.GetByID(context.Background(), f.visit.ID)
	if err != nil {
		t.Fatalf("Failed to reload visit: %v", err)
	}
	if stored.AISummary != result.Summary {
		t.Errorf("Fallback summary must be cached on the visit")
	}
}

func TestSummarizeSuccess(t *testing.T) {
	f := newSummaryFixture(t)
	client := &fakeCompleter{response: "A concise clinical summary."}
	g := f.generator(client)

	result, err := g.Summarize(context.Background(), f.visit.ID, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Summary != "A concise clinical summary." {
		t.Errorf("Expected the generated text, got %q", result.Summary)
	}
	if result.Warning != "" {
		t.Errorf("Success path must not carry a warning, got %q", result.Warning)
	}
	if result.Source != SourceOpenAI {
		t.Errorf("Expected openai source, got %s", result.Source)
	}

	if len(client.prompts) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	for _, fragment := range []string{"Jane Doe", "Seasonal flu", "Rest and fluids"} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("Prompt missing %q", fragment)
		}
	}
	// No structured or free-text prescriptions on this visit
	if !strings.Contains(prompt, "Prescriptions:\nNone") {
		t.Errorf("Prompt should state there are no prescriptions:\n%s", prompt)
	}
}

func TestSummarizeCaching(t *testing.T) {
	f := newSummaryFixture(t)
	client := &fakeCompleter{response: "First summary"}
	g := f.generator(client)
	ctx := context.Background()

	first, err := g.Summarize(ctx, f.visit.ID, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Second call serves the cache without calling the API
	client.response = "Second summary"
	second, err := g.Summarize(ctx, f.visit.ID, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if second.Summary != first.Summary {
		t.Errorf("Expected cached summary, got %q", second.Summary)
	}
	if second.Source != SourceCache {
		t.Errorf("Expected cache source, got %s", second.Source)
	}
	if client.calls != 1 {
		t.Errorf("Cached read must not call the API, got %d calls", client.calls)
	}

	// force=true bypasses the cache
	third, err := g.Summarize(ctx, f.visit.ID, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if third.Summary != "Second summary" {
		t.Errorf("Expected regenerated summary, got %q", third.Summary)
	}
	if client.calls != 2 {
		t.Errorf("Forced regeneration must call the API, got %d calls", client.calls)
	}
}

func TestSummarizeFailureWarnings(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "Quota exhausted", err: fmt.Errorf("%w: billing", ErrQuotaExceeded), expected: WarnQuotaExceeded},
		{name: "Rate limited", err: fmt.Errorf("%w: slow down", ErrRateLimited), expected: WarnRateLimited},
		{name: "Bad credential", err: fmt.Errorf("%w: 401", ErrInvalidCredential), expected: WarnInvalidCredential},
		{name: "Anything else", err: errors.New("connection reset"), expected: WarnGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSummaryFixture(t)
			g := f.generator(&fakeCompleter{err: tt.err})

			result, err := g.Summarize(context.Background(), f.visit.ID, false)
			if err != nil {
				t.Fatalf("External failures must degrade, not fail: %v", err)
			}
			if result.Warning != tt.expected {
				t.Errorf("Expected warning %q, got %q", tt.expected, result.Warning)
			}
			if result.Source != SourceFallback {
				t.Errorf("Expected fallback source, got %s", result.Source)
			}
			if !strings.Contains(result.Summary, "Patient Visit Summary") {
				t.Errorf("Expected the fallback template, got:\n%s", result.Summary)
			}
		})
	}
}

func TestSummarizeMissingVisit(t *testing.T) {
	f := newSummaryFixture(t)
	g := f.generator(&fakeCompleter{response: "unused"})

	_, err := g.Summarize(context.Background(), "missing", false)
	if !errors.Is(err, dal.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing visit, got %v", err)
	}
}

func TestSummarizeFreeTextPrescriptionFallback(t *testing.T) {
	f := newSummaryFixture(t)
	ctx := context.Background()

	if _, err := f.visits.Update(ctx, f.visit.ID, &dal.Visit{PrescriptionText: "Paracetamol as needed"}); err != nil {
		t.Fatalf("Failed to set free-text prescription: %v", err)
	}

	g := f.generator(nil)
	result, err := g.Summarize(ctx, f.visit.ID, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(result.Summary, "Paracetamol as needed") {
		t.Errorf("Expected the free-text prescription in the summary:\n%s", result.Summary)
	}
}
