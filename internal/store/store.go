// Package store is the record store adapter: a document-shaped datastore with
// get/query/create/update/append primitives, an atomic read-modify-write and
// live subscriptions. Two backends exist, Memory and Postgres; both publish
// committed snapshots through a Feed.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/psds-microservice/casework-service/internal/errs"
)

// MaxInValues caps the membership list of an "in" predicate. Callers with
// longer lists use QueryIn.
const MaxInValues = 30

type Op string

const (
	OpEqual Op = "=="
	OpIn    Op = "in"
)

// Predicate filters documents on the string form of a (possibly dotted) field.
type Predicate struct {
	Field  string
	Op     Op
	Value  string
	Values []string
}

func Eq(field, value string) Predicate {
	return Predicate{Field: field, Op: OpEqual, Value: value}
}

func In(field string, values []string) Predicate {
	return Predicate{Field: field, Op: OpIn, Values: values}
}

// Document is one record. Version grows by one on every committed write.
type Document struct {
	Collection string
	ID         string
	Data       map[string]any
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Deleted    bool
}

// Decode unmarshals the document data into v.
func (d *Document) Decode(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Mutator edits document data in place. Returning an error aborts the write.
type Mutator func(data map[string]any) error

// Cancel stops a subscription. Once it returns no further callback starts.
// It waits for an in-flight callback, so it must not be called from one.
type Cancel func()

type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, preds ...Predicate) ([]*Document, error)
	Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	AppendToArray(ctx context.Context, collection, id, field string, values ...any) (*Document, error)
	Mutate(ctx context.Context, collection, id string, fn Mutator) (*Document, error)
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection, id string, fn func(*Document)) (Cancel, error)
}

// ToMap converts a struct into document data using its json tags.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryIn runs an "in" query over values of any length, splitting it into
// chunks of MaxInValues and concatenating the results.
func QueryIn(ctx context.Context, s Store, collection, field string, values []string, extra ...Predicate) ([]*Document, error) {
	var out []*Document
	for start := 0; start < len(values); start += MaxInValues {
		end := min(start+MaxInValues, len(values))
		preds := append([]Predicate{In(field, values[start:end])}, extra...)
		docs, err := s.Query(ctx, collection, preds...)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// checkQuery validates predicates. empty is true when an "in" predicate has
// no values, in which case the query must return nothing without a request.
func checkQuery(preds []Predicate) (empty bool, err error) {
	for _, p := range preds {
		if err := CheckField(p.Field); err != nil {
			return false, err
		}
		switch p.Op {
		case OpEqual:
		case OpIn:
			if len(p.Values) == 0 {
				empty = true
			}
			if len(p.Values) > MaxInValues {
				return false, errs.Invalid("in predicate on %s has %d values, max %d", p.Field, len(p.Values), MaxInValues)
			}
		default:
			return false, errs.Invalid("unsupported operator %q", p.Op)
		}
	}
	return empty, nil
}

func notFound(collection, id string) error {
	return fmt.Errorf("%s/%s: %w", collection, id, errs.ErrNotFound)
}
