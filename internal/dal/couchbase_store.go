package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// CouchbaseStore implements Store on top of a Couchbase bucket. Each Kind
// maps to a collection in the default scope; document keys are plain ids.
type CouchbaseStore struct {
	conn *Connection
}

// NewCouchbaseStore creates a store backed by the given connection
func NewCouchbaseStore(conn *Connection) *CouchbaseStore {
	return &CouchbaseStore{conn: conn}
}

func (s *CouchbaseStore) collection(kind Kind) *gocb.Collection {
	return s.conn.GetBucket().Scope("_default").Collection(string(kind))
}

// Get retrieves a document by id
func (s *CouchbaseStore) Get(ctx context.Context, kind Kind, id string, out interface{}) error {
	_, err := s.GetWithCAS(ctx, kind, id, out)
	return err
}

// GetWithCAS retrieves a document and its CAS token for conditional replace
func (s *CouchbaseStore) GetWithCAS(ctx context.Context, kind Kind, id string, out interface{}) (Cas, error) {
	start := time.Now()
	result, err := s.collection(kind).Get(id, &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("get %s/%s: %w", kind, id, err)
	}

	if err := result.Content(out); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", kind, id, err)
	}

	log.Debug().
		Str("kind", string(kind)).
		Str("id", id).
		Dur("duration", time.Since(start)).
		Msg("Document retrieved")
	return Cas(result.Cas()), nil
}

// Insert stores a new document, failing if the key exists
func (s *CouchbaseStore) Insert(ctx context.Context, kind Kind, id string, doc interface{}) error {
	_, err := s.collection(kind).Insert(id, doc, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentExists) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert %s/%s: %w", kind, id, err)
	}
	return nil
}

// Upsert stores or overwrites a document
func (s *CouchbaseStore) Upsert(ctx context.Context, kind Kind, id string, doc interface{}) error {
	_, err := s.collection(kind).Upsert(id, doc, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, id, err)
	}
	return nil
}

// Replace overwrites a document only if it has not changed since the CAS
// token was read
func (s *CouchbaseStore) Replace(ctx context.Context, kind Kind, id string, doc interface{}, cas Cas) error {
	_, err := s.collection(kind).Replace(id, doc, &gocb.ReplaceOptions{
		Cas:     gocb.Cas(cas),
		Context: ctx,
	})
	if err != nil {
		if errors.Is(err, gocb.ErrCasMismatch) || errors.Is(err, gocb.ErrDocumentExists) {
			return ErrCASMismatch
		}
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("replace %s/%s: %w", kind, id, err)
	}
	return nil
}

// Remove deletes a document by id
func (s *CouchbaseStore) Remove(ctx context.Context, kind Kind, id string) error {
	_, err := s.collection(kind).Remove(id, &gocb.RemoveOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s/%s: %w", kind, id, err)
	}
	return nil
}

type findRow struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// Find runs a filtered N1QL query against the kind's collection
func (s *CouchbaseStore) Find(ctx context.Context, kind Kind, q Query) ([]Doc, error) {
	where, params := compileFilter(q.Filter)

	stmt := fmt.Sprintf("SELECT META(d).id AS id, d AS body FROM `%s`.`_default`.`%s` AS d",
		s.conn.GetBucketName(), string(kind))
	if where != "" {
		stmt += " WHERE " + where
	}
	if q.Sort.Field != "" {
		dir := "ASC"
		if q.Sort.Desc {
			dir = "DESC"
		}
		stmt += fmt.Sprintf(" ORDER BY %s %s", fieldExpr(q.Sort.Field), dir)
	}
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	start := time.Now()
	rows, err := s.conn.GetCluster().Query(stmt, &gocb.QueryOptions{
		PositionalParameters: params,
		Context:              ctx,
	})
	if err != nil {
		log.Error().Err(err).Str("query", stmt).Msg("Query failed")
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var row findRow
		if err := rows.Row(&row); err != nil {
			log.Warn().Err(err).Msg("Failed to decode query row")
			continue
		}
		docs = append(docs, Doc{ID: row.ID, Body: row.Body})
	}

	log.Debug().
		Str("kind", string(kind)).
		Int("results", len(docs)).
		Dur("duration", time.Since(start)).
		Msg("Documents queried")
	return docs, nil
}

// Count returns the number of documents matching the filter
func (s *CouchbaseStore) Count(ctx context.Context, kind Kind, f Filter) (int, error) {
	where, params := compileFilter(f)

	stmt := fmt.Sprintf("SELECT COUNT(*) AS total FROM `%s`.`_default`.`%s` AS d",
		s.conn.GetBucketName(), string(kind))
	if where != "" {
		stmt += " WHERE " + where
	}

	rows, err := s.conn.GetCluster().Query(stmt, &gocb.QueryOptions{
		PositionalParameters: params,
		Context:              ctx,
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	defer rows.Close()

	var row struct {
		Total int `json:"total"`
	}
	if rows.Next() {
		if err := rows.Row(&row); err != nil {
			return 0, fmt.Errorf("decode count row: %w", err)
		}
	}
	return row.Total, nil
}

// fieldExpr maps a filter field name to a N1QL expression. The pseudo
// field "_id" refers to the document key.
func fieldExpr(field string) string {
	if field == "_id" {
		return "META(d).id"
	}
	return fmt.Sprintf("d.`%s`", field)
}

// compileFilter renders a Filter as a N1QL WHERE clause with positional
// parameters
func compileFilter(f Filter) (string, []interface{}) {
	var params []interface{}

	compileCond := func(c Cond) string {
		params = append(params, condValue(c.Value))
		placeholder := fmt.Sprintf("$%d", len(params))
		expr := fieldExpr(c.Field)

		switch c.Op {
		case OpNe:
			// Missing fields satisfy != per the read-current contract
			return fmt.Sprintf("(%s != %s OR %s IS MISSING)", expr, placeholder, expr)
		case OpIn:
			return fmt.Sprintf("%s IN %s", expr, placeholder)
		case OpContains:
			return fmt.Sprintf("CONTAINS(LOWER(%s), LOWER(%s))", expr, placeholder)
		case OpGte:
			return fmt.Sprintf("%s >= %s", expr, placeholder)
		case OpLte:
			return fmt.Sprintf("%s <= %s", expr, placeholder)
		default:
			return fmt.Sprintf("%s = %s", expr, placeholder)
		}
	}

	var clauses []string
	for _, c := range f.All {
		clauses = append(clauses, compileCond(c))
	}
	if len(f.Any) > 0 {
		var ors []string
		for _, c := range f.Any {
			ors = append(ors, compileCond(c))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), params
}

// condValue normalizes filter values for the wire. Times are compared as
// RFC 3339 strings, matching how documents serialize them.
func condValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}
