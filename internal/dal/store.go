package dal

import (
	"context"
	"encoding/json"
)

// Kind identifies a document collection.
type Kind string

const (
	KindPatient      Kind = "patients"
	KindAppointment  Kind = "appointments"
	KindVisit        Kind = "visits"
	KindPrescription Kind = "prescriptions"
	KindAuditLog     Kind = "audit_log"
	KindUser         Kind = "users"
	KindClinic       Kind = "clinic"
)

// Cas is an opaque compare-and-swap token returned by GetWithCAS and
// consumed by Replace. A Replace with a stale token fails with
// ErrCASMismatch instead of overwriting a concurrent update.
type Cas uint64

// Op is a filter comparison operator.
type Op string

const (
	OpEq       Op = "eq"       // field == value
	OpNe       Op = "ne"       // field != value, missing fields match
	OpIn       Op = "in"       // field is one of value ([]string)
	OpContains Op = "contains" // case-insensitive substring match
	OpGte      Op = "gte"      // field >= value
	OpLte      Op = "lte"      // field <= value
)

// Cond is a single field condition. The field name refers to the JSON
// field of the stored document; "_id" refers to the document key.
type Cond struct {
	Field string
	Op    Op
	Value interface{}
}

// Filter combines conditions: every Cond in All must hold, and at least
// one Cond in Any must hold (when Any is non-empty).
type Filter struct {
	All []Cond
	Any []Cond
}

// Sort orders results by a JSON field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is a filtered, ordered, paginated lookup.
type Query struct {
	Filter Filter
	Sort   Sort
	Limit  int
	Offset int
}

// Doc is one raw result row from Find.
type Doc struct {
	ID   string
	Body json.RawMessage
}

// Store is the document store consumed by the models. The Couchbase
// implementation backs production; the in-memory implementation backs
// tests and local development without a cluster.
type Store interface {
	Get(ctx context.Context, kind Kind, id string, out interface{}) error
	GetWithCAS(ctx context.Context, kind Kind, id string, out interface{}) (Cas, error)
	Insert(ctx context.Context, kind Kind, id string, doc interface{}) error
	Upsert(ctx context.Context, kind Kind, id string, doc interface{}) error
	Replace(ctx context.Context, kind Kind, id string, doc interface{}, cas Cas) error
	Remove(ctx context.Context, kind Kind, id string) error
	Find(ctx context.Context, kind Kind, q Query) ([]Doc, error)
	Count(ctx context.Context, kind Kind, f Filter) (int, error)
}
