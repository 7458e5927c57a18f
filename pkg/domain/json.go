package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is a generic gorm/database value type that marshals T to a JSON text
// column and back. Record-store adapters in this codebase favor a single
// text column over per-field columns for the free-form pieces of the data
// model (error_info, aggregated_metrics, metadata, generated file lists) —
// the record store owns CRUD, not a relational shredding of every nested
// field.
type JSON[T any] struct {
	Value T
}

// NewJSON wraps a value for storage.
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Value: v}
}

// Scan implements sql.Scanner.
func (j *JSON[T]) Scan(value any) error {
	if value == nil {
		var zero T
		j.Value = zero
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("domain: unsupported Scan type %T for JSON column", value)
	}
	if len(bytes) == 0 {
		var zero T
		j.Value = zero
		return nil
	}
	return json.Unmarshal(bytes, &j.Value)
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Value)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON delegates to the wrapped value so API responses are not
// double-wrapped under a "Value" key.
func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Value)
}

// UnmarshalJSON delegates to the wrapped value.
func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.Value)
}

// JSONStrings is a []string stored as a JSON text column.
type JSONStrings []string

// Scan implements sql.Scanner.
func (s *JSONStrings) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("domain: unsupported Scan type %T for JSONStrings column", value)
	}
	if len(bytes) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer.
func (s JSONStrings) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
