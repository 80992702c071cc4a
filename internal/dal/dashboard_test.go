package dal

import (
	"context"
	"testing"
	"time"
)

func newDashboardFixture(t *testing.T) (*DashboardModel, *PatientModel, *AppointmentModel, *VisitModel, *UserModel) {
	t.Helper()
	store := NewMemoryStore()
	patients := NewPatientModel(store)
	appointments := NewAppointmentModel(store)
	visits := NewVisitModel(store)
	users := NewUserModel(store)
	return NewDashboardModel(patients, appointments, visits, users), patients, appointments, visits, users
}

func TestDashboardOverview(t *testing.T) {
	dm, patients, appointments, visits, users := newDashboardFixture(t)
	ctx := context.Background()
	now := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	p := Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: "1990-01-01", Gender: "female", Phone: "555-0101"}
	if err := patients.Create(ctx, &p); err != nil {
		t.Fatalf("Failed to create patient: %v", err)
	}

	doctor := User{Name: "Dr. Gregory", Email: "gregory@clinic.com", PasswordHash: "x", Role: RoleDoctor, IsActive: true}
	if err := users.Create(ctx, &doctor); err != nil {
		t.Fatalf("Failed to create doctor: %v", err)
	}

	fixtures := []Appointment{
		{PatientID: p.ID, DoctorID: doctor.ID, Date: now.Add(2 * time.Hour), Reason: "Checkup"},
		{PatientID: p.ID, DoctorID: doctor.ID, Date: now.Add(48 * time.Hour), Reason: "Follow-up"},
		{PatientID: p.ID, Date: now.Add(-72 * time.Hour), Reason: "Old visit", Status: AppointmentCompleted},
		{PatientID: p.ID, Date: now.Add(24 * time.Hour), Reason: "Cancelled", Status: AppointmentCancelled},
	}
	for i := range fixtures {
		if err := appointments.Create(ctx, &fixtures[i]); err != nil {
			t.Fatalf("Failed to create appointment %d: %v", i, err)
		}
	}

	v := Visit{PatientID: p.ID, DoctorID: doctor.ID, Diagnosis: "Flu"}
	if err := visits.Create(ctx, &v); err != nil {
		t.Fatalf("Failed to create visit: %v", err)
	}

	overview, err := dm.Overview(ctx, now)
	if err != nil {
		t.Fatalf("Failed to build overview: %v", err)
	}

	if overview.TotalPatients != 1 {
		t.Errorf("Expected 1 patient, got %d", overview.TotalPatients)
	}
	if overview.TotalAppointments != 4 {
		t.Errorf("Expected 4 appointments, got %d", overview.TotalAppointments)
	}
	if overview.TotalVisits != 1 {
		t.Errorf("Expected 1 visit, got %d", overview.TotalVisits)
	}
	if overview.TodayAppointments != 1 {
		t.Errorf("Expected 1 appointment today, got %d", overview.TodayAppointments)
	}

	// Completed appointments are excluded from upcoming
	if len(overview.UpcomingAppointments) != 3 {
		t.Errorf("Expected 3 upcoming appointments, got %d", len(overview.UpcomingAppointments))
	}

	statusByName := make(map[string]int)
	for _, sc := range overview.AppointmentStatus {
		statusByName[sc.Status] = sc.Count
	}
	if statusByName[AppointmentScheduled] != 2 || statusByName[AppointmentCompleted] != 1 || statusByName[AppointmentCancelled] != 1 {
		t.Errorf("Unexpected status breakdown: %v", statusByName)
	}

	if len(overview.DoctorWorkload) != 1 {
		t.Fatalf("Expected 1 doctor in workload, got %d", len(overview.DoctorWorkload))
	}
	if overview.DoctorWorkload[0].Name != "Dr. Gregory" || overview.DoctorWorkload[0].Appointments != 2 {
		t.Errorf("Unexpected workload: %+v", overview.DoctorWorkload[0])
	}
}

func TestDashboardAnalytics(t *testing.T) {
	dm, patients, appointments, visits, _ := newDashboardFixture(t)
	ctx := context.Background()

	p := Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: "1990-01-01", Gender: "female", Phone: "555-0101"}
	if err := patients.Create(ctx, &p); err != nil {
		t.Fatalf("Failed to create patient: %v", err)
	}

	year := time.Now().UTC().Year()
	march := time.Date(year, time.March, 10, 9, 0, 0, 0, time.UTC)
	july := time.Date(year, time.July, 5, 9, 0, 0, 0, time.UTC)

	for _, date := range []time.Time{march, march.Add(time.Hour), july} {
		a := Appointment{PatientID: p.ID, Date: date, Reason: "Checkup"}
		if err := appointments.Create(ctx, &a); err != nil {
			t.Fatalf("Failed to create appointment: %v", err)
		}
	}

	// Visits bucket by creation time, which is always "now"
	v := Visit{PatientID: p.ID, DoctorID: "doctor-1", Diagnosis: "Flu"}
	if err := visits.Create(ctx, &v); err != nil {
		t.Fatalf("Failed to create visit: %v", err)
	}

	months, err := dm.Analytics(ctx, year)
	if err != nil {
		t.Fatalf("Failed to build analytics: %v", err)
	}
	if len(months) != 12 {
		t.Fatalf("Expected 12 month buckets, got %d", len(months))
	}

	if months[2].Appointments != 2 {
		t.Errorf("Expected 2 appointments in March, got %d", months[2].Appointments)
	}
	if months[6].Appointments != 1 {
		t.Errorf("Expected 1 appointment in July, got %d", months[6].Appointments)
	}

	currentMonth := int(time.Now().UTC().Month())
	if months[currentMonth-1].Visits != 1 {
		t.Errorf("Expected 1 visit in the current month, got %d", months[currentMonth-1].Visits)
	}
}

func TestDashboardUpcoming(t *testing.T) {
	dm, patients, appointments, _, _ := newDashboardFixture(t)
	ctx := context.Background()
	now := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	p := Patient{FirstName: "Jane", LastName: "Doe", DateOfBirth: "1990-01-01", Gender: "female", Phone: "555-0101"}
	if err := patients.Create(ctx, &p); err != nil {
		t.Fatalf("Failed to create patient: %v", err)
	}

	fixtures := []Appointment{
		{PatientID: p.ID, Date: now.Add(time.Hour), Reason: "Soon"},
		{PatientID: p.ID, Date: now.Add(2 * time.Hour), Reason: "Cancelled", Status: AppointmentCancelled},
		{PatientID: p.ID, Date: now.Add(-time.Hour), Reason: "Past"},
	}
	for i := range fixtures {
		if err := appointments.Create(ctx, &fixtures[i]); err != nil {
			t.Fatalf("Failed to create appointment %d: %v", i, err)
		}
	}

	upcoming, err := dm.Upcoming(ctx, now)
	if err != nil {
		t.Fatalf("Failed to list upcoming: %v", err)
	}
	if len(upcoming) != 1 {
		t.Fatalf("Expected 1 upcoming appointment, got %d", len(upcoming))
	}
	if upcoming[0].Reason != "Soon" {
		t.Errorf("Expected the non-cancelled future appointment, got %s", upcoming[0].Reason)
	}
}
