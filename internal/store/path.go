package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/psds-microservice/casework-service/internal/errs"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// CheckField rejects field names outside [A-Za-z0-9_] dotted segments.
func CheckField(field string) error {
	if !fieldPattern.MatchString(field) {
		return errs.Invalid("field %q", field)
	}
	return nil
}

// GetPath reads a dotted field from document data.
func GetPath(data map[string]any, field string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes a dotted field, creating intermediate maps. A non-map value
// on the way is replaced.
func SetPath(data map[string]any, field string, value any) {
	parts := strings.Split(field, ".")
	cur := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// appendPath appends values to the list at field. A missing field starts empty.
func appendPath(data map[string]any, field string, values ...any) error {
	var list []any
	if cur, ok := GetPath(data, field); ok && cur != nil {
		l, ok := cur.([]any)
		if !ok {
			return errs.Invalid("field %s is not a list", field)
		}
		list = l
	}
	SetPath(data, field, append(list, values...))
	return nil
}

// normalize turns arbitrary Go values into their JSON form (maps, []any,
// float64, string, bool) so both backends hold the same shapes.
func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return make(map[string]any), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyFields(data map[string]any, fields map[string]any) error {
	for k, v := range fields {
		if err := CheckField(k); err != nil {
			return err
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", k, err)
		}
		SetPath(data, k, nv)
	}
	return nil
}

func appendValues(data map[string]any, field string, values []any) error {
	if err := CheckField(field); err != nil {
		return err
	}
	norm := make([]any, 0, len(values))
	for _, v := range values {
		nv, err := normalizeValue(v)
		if err != nil {
			return fmt.Errorf("encode value for %s: %w", field, err)
		}
		norm = append(norm, nv)
	}
	return appendPath(data, field, norm...)
}

func matches(data map[string]any, preds []Predicate) bool {
	for _, p := range preds {
		v, ok := GetPath(data, p.Field)
		if !ok || v == nil {
			return false
		}
		s := fmt.Sprint(v)
		switch p.Op {
		case OpEqual:
			if s != p.Value {
				return false
			}
		case OpIn:
			found := false
			for _, want := range p.Values {
				if s == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
