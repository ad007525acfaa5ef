package models

import (
	"bytes"
	"encoding/json"
)

// Field is a single column of a result row.
type Field struct {
	Name  string
	Value any
}

// Record is a result row that keeps the database column order.
// It marshals to a JSON object whose keys follow that order.
type Record []Field

// Get returns the value of the named column.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the column names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Without returns a copy of the record minus the named columns.
func (r Record) Without(names map[string]bool) Record {
	out := make(Record, 0, len(r))
	for _, f := range r {
		if names[f.Name] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
