package table

import (
	"fmt"
)

// Record is a single key->value mapping with insertion order preserved.
// JSON objects decode into Records so that column order survives the trip
// through the model.
type Record struct {
	Keys   []string
	Values map[string]any
}

// NewRecord returns an empty record ready for ordered insertion.
func NewRecord() Record {
	return Record{Values: make(map[string]any)}
}

// Set inserts or replaces a key, appending to the order on first insertion.
func (r *Record) Set(key string, value any) {
	if _, ok := r.Values[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Len reports the number of keys.
func (r Record) Len() int { return len(r.Keys) }

// FromRecords converts a row-oriented sequence of uniform records into a
// Table. Columns follow the first record's key order. Records whose key sets
// differ from the first are an error; the caller decides what to do with the
// original value in that case.
func FromRecords(records []Record) (*Table, error) {
	if len(records) == 0 {
		return &Table{}, nil
	}
	columns := append([]string(nil), records[0].Keys...)
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		if len(rec.Keys) != len(columns) {
			return nil, fmt.Errorf("record %d has %d keys, want %d", i, len(rec.Keys), len(columns))
		}
		row := make([]any, len(columns))
		for j, c := range columns {
			v, ok := rec.Values[c]
			if !ok {
				return nil, fmt.Errorf("record %d is missing key %q", i, c)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// FromRecord converts a single column-oriented record into a Table. When
// every value is a sequence, the sequences become columns and must share one
// length. When every value is a scalar, the result is a one-row table. A mix
// of the two, or ragged sequences, is an error.
func FromRecord(rec Record) (*Table, error) {
	if rec.Len() == 0 {
		return &Table{}, nil
	}
	seqs := 0
	for _, k := range rec.Keys {
		if _, ok := rec.Values[k].([]any); ok {
			seqs++
		}
	}
	switch seqs {
	case 0:
		// All scalars: one row.
		row := make([]any, len(rec.Keys))
		for i, k := range rec.Keys {
			row[i] = rec.Values[k]
		}
		return &Table{Columns: append([]string(nil), rec.Keys...), Rows: [][]any{row}}, nil
	case rec.Len():
		// All sequences: columns of equal length.
		length := -1
		for _, k := range rec.Keys {
			n := len(rec.Values[k].([]any))
			if length == -1 {
				length = n
			} else if n != length {
				return nil, fmt.Errorf("column %q has %d values, want %d", k, n, length)
			}
		}
		rows := make([][]any, length)
		for i := range rows {
			rows[i] = make([]any, len(rec.Keys))
			for j, k := range rec.Keys {
				rows[i][j] = rec.Values[k].([]any)[i]
			}
		}
		return &Table{Columns: append([]string(nil), rec.Keys...), Rows: rows}, nil
	default:
		return nil, fmt.Errorf("record mixes scalar and sequence values")
	}
}
