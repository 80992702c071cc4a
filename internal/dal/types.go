package dal

import "time"

// Patient is a demographic record. Staff create and edit these; the
// delete endpoint removes the document without cascading to references.
type Patient struct {
	ID          string    `json:"_id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DateOfBirth string    `json:"dateOfBirth"`
	Gender      string    `json:"gender"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Appointment statuses
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is a scheduling record referencing a patient and
// optionally a doctor
type Appointment struct {
	ID        string    `json:"_id"`
	PatientID string    `json:"patient"`
	DoctorID  string    `json:"doctor,omitempty"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Visit is a clinical encounter. AISummary caches the generated visit
// summary; PrescriptionText is the legacy free-text prescription field
// used when no structured prescriptions reference the visit.
type Visit struct {
	ID               string     `json:"_id"`
	PatientID        string     `json:"patient"`
	AppointmentID    string     `json:"appointment,omitempty"`
	DoctorID         string     `json:"doctor"`
	Diagnosis        string     `json:"diagnosis"`
	PrescriptionText string     `json:"prescription,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	FollowUpDate     *time.Time `json:"followUpDate,omitempty"`
	AISummary        string     `json:"aiSummary,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Medication is one line of a prescription
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// Prescription is one version in a prescription chain. Versions are
// linked by PreviousVersion back-references; version 1 is the root. The
// version with IsSuperseded and IsDeleted both false is the one
// clinically in effect.
type Prescription struct {
	ID              string       `json:"_id"`
	PatientID       string       `json:"patient"`
	DoctorID        string       `json:"doctor"`
	VisitID         string       `json:"visit,omitempty"`
	Medications     []Medication `json:"medications"`
	Notes           string       `json:"notes,omitempty"`
	Version         int          `json:"version"`
	PreviousVersion string       `json:"previousVersion,omitempty"`
	IsSuperseded    bool         `json:"isSuperseded"`
	IsDeleted       bool         `json:"isDeleted"`
	DeletedAt       *time.Time   `json:"deletedAt,omitempty"`
	DeletedBy       string       `json:"deletedBy,omitempty"`
	UpdatedBy       string       `json:"updatedBy,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Audit actions
const (
	AuditCreate = "CREATE"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
)

// AuditEntry records one mutating action against an entity. Entries are
// append-only.
type AuditEntry struct {
	ID          string                 `json:"_id"`
	Action      string                 `json:"action"`
	Entity      string                 `json:"entity"`
	EntityID    string                 `json:"entityId"`
	PerformedBy string                 `json:"performedBy"`
	Timestamp   time.Time              `json:"timestamp"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// User roles
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleReceptionist = "receptionist"
)

// User is a staff account
type User struct {
	ID           string    `json:"_id"`
	ClinicID     string    `json:"clinicId,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	Signature    string    `json:"signature,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Clinic is the singleton clinic profile
type Clinic struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Logo    string `json:"logo,omitempty"`
}
