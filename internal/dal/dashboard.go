package dal

import (
	"context"
	"time"
)

// DashboardModel computes the aggregate views behind the dashboard.
// Aggregations run in Go over filtered queries; at small-clinic volumes
// this beats maintaining query-side grouping in two store backends.
type DashboardModel struct {
	patients     *PatientModel
	appointments *AppointmentModel
	visits       *VisitModel
	users        *UserModel
}

// NewDashboardModel creates a new dashboard model instance
func NewDashboardModel(patients *PatientModel, appointments *AppointmentModel, visits *VisitModel, users *UserModel) *DashboardModel {
	return &DashboardModel{
		patients:     patients,
		appointments: appointments,
		visits:       visits,
		users:        users,
	}
}

// StatusCount is an appointment count for one status
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DoctorWorkload is the appointment count for one doctor
type DoctorWorkload struct {
	Name         string `json:"name"`
	Appointments int    `json:"appointments"`
}

// Overview is the dashboard landing payload
type Overview struct {
	TotalPatients        int              `json:"totalPatients"`
	TotalAppointments    int              `json:"totalAppointments"`
	TotalVisits          int              `json:"totalVisits"`
	TodayAppointments    int              `json:"todayAppointments"`
	UpcomingAppointments []Appointment    `json:"upcomingAppointments"`
	RecentVisits         []Visit          `json:"recentVisits"`
	AppointmentStatus    []StatusCount    `json:"appointmentStatus"`
	DoctorWorkload       []DoctorWorkload `json:"doctorWorkload"`
}

// MonthlyActivity is one month's appointment/visit totals
type MonthlyActivity struct {
	Month        int `json:"month"`
	Appointments int `json:"appointments"`
	Visits       int `json:"visits"`
}

// Overview assembles the dashboard landing payload
func (dm *DashboardModel) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	totalPatients, err := dm.patients.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	totalAppointments, err := dm.appointments.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	totalVisits, err := dm.visits.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
	todayCount, err := dm.appointments.CountBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	upcoming, err := dm.appointments.ListUpcoming(ctx, dayStart, AppointmentCompleted, 5)
	if err != nil {
		return nil, err
	}

	recentVisits, err := dm.visits.Recent(ctx, 5)
	if err != nil {
		return nil, err
	}

	all, err := dm.appointments.List(ctx)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int)
	byDoctor := make(map[string]int)
	for _, a := range all {
		byStatus[a.Status]++
		if a.DoctorID != "" {
			byDoctor[a.DoctorID]++
		}
	}

	statusCounts := make([]StatusCount, 0, len(byStatus))
	for _, status := range []string{AppointmentScheduled, AppointmentCompleted, AppointmentCancelled} {
		if n, ok := byStatus[status]; ok {
			statusCounts = append(statusCounts, StatusCount{Status: status, Count: n})
		}
	}

	doctors, err := dm.users.List(ctx, RoleDoctor)
	if err != nil {
		return nil, err
	}
	workload := make([]DoctorWorkload, 0, len(doctors))
	for _, d := range doctors {
		if n, ok := byDoctor[d.ID]; ok {
			workload = append(workload, DoctorWorkload{Name: d.Name, Appointments: n})
		}
	}

	return &Overview{
		TotalPatients:        totalPatients,
		TotalAppointments:    totalAppointments,
		TotalVisits:          totalVisits,
		TodayAppointments:    todayCount,
		UpcomingAppointments: upcoming,
		RecentVisits:         recentVisits,
		AppointmentStatus:    statusCounts,
		DoctorWorkload:       workload,
	}, nil
}

// Analytics buckets the year's appointments and visits per month
func (dm *DashboardModel) Analytics(ctx context.Context, year int) ([]MonthlyActivity, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	appointments, err := dm.appointments.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	visits, err := dm.visits.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	months := make([]MonthlyActivity, 12)
	for i := range months {
		months[i].Month = i + 1
	}
	for _, a := range appointments {
		months[int(a.Date.Month())-1].Appointments++
	}
	for _, v := range visits {
		months[int(v.CreatedAt.Month())-1].Visits++
	}
	return months, nil
}

// Upcoming returns the next non-cancelled appointments from now
func (dm *DashboardModel) Upcoming(ctx context.Context, now time.Time) ([]Appointment, error) {
	return dm.appointments.ListUpcoming(ctx, now, AppointmentCancelled, 5)
}
