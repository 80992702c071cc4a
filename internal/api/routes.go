package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
	"clinicdesk.io/clinicdesk/internal/metrics"
	"clinicdesk.io/clinicdesk/internal/summary"
)

// Server wires the entity models, the summary generator and the session
// configuration behind the HTTP handlers
type Server struct {
	patients      *dal.PatientModel
	appointments  *dal.AppointmentModel
	visits        *dal.VisitModel
	prescriptions *dal.PrescriptionModel
	audit         *dal.AuditModel
	users         *dal.UserModel
	clinic        *dal.ClinicModel
	dashboard     *dal.DashboardModel
	generator     *summary.Generator
	auth          AuthConfig
}

// NewServer builds the full handler graph on top of a document store.
// A nil completer disables AI summaries; the fallback template is used.
func NewServer(store dal.Store, completer summary.Completer, auth AuthConfig) *Server {
	patients := dal.NewPatientModel(store)
	appointments := dal.NewAppointmentModel(store)
	visits := dal.NewVisitModel(store)
	audit := dal.NewAuditModel(store)
	prescriptions := dal.NewPrescriptionModel(store, audit)
	users := dal.NewUserModel(store)
	clinic := dal.NewClinicModel(store)

	return &Server{
		patients:      patients,
		appointments:  appointments,
		visits:        visits,
		prescriptions: prescriptions,
		audit:         audit,
		users:         users,
		clinic:        clinic,
		dashboard:     dal.NewDashboardModel(patients, appointments, visits, users),
		generator:     summary.NewGenerator(visits, patients, prescriptions, completer),
		auth:          auth,
	}
}

// Users exposes the user model for startup bootstrapping
func (s *Server) Users() *dal.UserModel {
	return s.users
}

// SetupRoutes configures and returns the HTTP router
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware to all routes
	r.Use(metrics.Middleware)
	r.Use(s.authMiddleware)

	// Auth and system routes
	r.HandleFunc(LoginPath, s.LoginHandler).Methods("POST")
	r.HandleFunc("/auth/userinfo", s.UserInfoHandler).Methods("GET")
	r.HandleFunc(HealthPath, s.HealthHandler).Methods("GET")
	r.Handle(MetricsPath, promhttp.Handler()).Methods("GET")

	// Patient routes
	r.HandleFunc("/patients", s.ListPatientsHandler).Methods("GET")
	r.HandleFunc("/patients", s.CreatePatientHandler).Methods("POST")
	r.HandleFunc("/patients/{id}", s.GetPatientHandler).Methods("GET")
	r.HandleFunc("/patients/{id}", s.UpdatePatientHandler).Methods("PUT")
	r.HandleFunc("/patients/{id}", s.DeletePatientHandler).Methods("DELETE")
	r.HandleFunc("/patients/{id}/details", s.PatientDetailsHandler).Methods("GET")

	// Appointment routes
	r.HandleFunc("/appointments", s.ListAppointmentsHandler).Methods("GET")
	r.HandleFunc("/appointments", s.CreateAppointmentHandler).Methods("POST")
	r.HandleFunc("/appointments/{id}", s.UpdateAppointmentHandler).Methods("PUT")
	r.HandleFunc("/appointments/{id}", s.DeleteAppointmentHandler).Methods("DELETE")

	// Visit routes
	r.HandleFunc("/visits", s.ListVisitsHandler).Methods("GET")
	r.HandleFunc("/visits", s.CreateVisitHandler).Methods("POST")
	r.HandleFunc("/visits/{id}", s.UpdateVisitHandler).Methods("PUT")
	r.HandleFunc("/visits/{id}", s.DeleteVisitHandler).Methods("DELETE")
	r.HandleFunc("/visits/{id}/summary", s.VisitSummaryHandler).Methods("GET")

	// Prescription routes
	r.HandleFunc("/prescriptions", s.ListPrescriptionsHandler).Methods("GET")
	r.HandleFunc("/prescriptions", s.CreatePrescriptionHandler).Methods("POST")
	r.HandleFunc("/prescriptions/{id}", s.GetPrescriptionHandler).Methods("GET")
	r.HandleFunc("/prescriptions/{id}", s.AmendPrescriptionHandler).Methods("PUT")
	r.HandleFunc("/prescriptions/{id}", s.RetractPrescriptionHandler).Methods("DELETE")
	r.HandleFunc("/prescriptions/{id}/history", s.PrescriptionHistoryHandler).Methods("GET")

	// Directory and dashboard routes
	r.HandleFunc("/users", s.ListUsersHandler).Methods("GET")
	r.HandleFunc("/clinic", s.GetClinicHandler).Methods("GET")
	r.HandleFunc("/dashboard", s.DashboardHandler).Methods("GET")
	r.HandleFunc("/dashboard/analytics", s.DashboardAnalyticsHandler).Methods("GET")
	r.HandleFunc("/dashboard/upcoming-appointments", s.UpcomingAppointmentsHandler).Methods("GET")

	log.Info().Msg("Routes configured")
	return r
}
