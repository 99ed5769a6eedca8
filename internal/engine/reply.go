package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tableloom/internal/table"
)

// ReplyKind tags the shape of an engine reply.
type ReplyKind int

const (
	// KindScalar is a plain value or free text.
	KindScalar ReplyKind = iota
	// KindTable is an already-tabular reply.
	KindTable
	// KindRecords is a row-oriented sequence of key->value records.
	KindRecords
	// KindRecord is a single key->value(s) record.
	KindRecord
)

func (k ReplyKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindTable:
		return "table"
	case KindRecords:
		return "records"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("ReplyKind(%d)", int(k))
	}
}

// Reply is the engine's answer: exactly one variant is populated, selected
// by Kind. Replies are transient; they exist only to be normalized by the
// dispatcher and are discarded after display.
type Reply struct {
	Kind    ReplyKind
	Table   *table.Table
	Records []table.Record
	Record  table.Record
	Scalar  string
}

// ScalarReply wraps free text.
func ScalarReply(text string) Reply { return Reply{Kind: KindScalar, Scalar: text} }

// TableReply wraps an existing table.
func TableReply(t *table.Table) Reply { return Reply{Kind: KindTable, Table: t} }

// RecordsReply wraps a record sequence.
func RecordsReply(recs []table.Record) Reply { return Reply{Kind: KindRecords, Records: recs} }

// RecordReply wraps a single record.
func RecordReply(rec table.Record) Reply { return Reply{Kind: KindRecord, Record: rec} }

// OriginalJSON renders the reply's underlying structure as compact JSON,
// used when a record-shaped reply cannot form a table and the original
// value must still be shown.
func (r Reply) OriginalJSON() string {
	switch r.Kind {
	case KindRecords:
		parts := make([]string, len(r.Records))
		for i, rec := range r.Records {
			parts[i] = recordJSON(rec)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindRecord:
		return recordJSON(r.Record)
	case KindScalar:
		return r.Scalar
	default:
		return ""
	}
}

func recordJSON(rec table.Record) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range rec.Keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(rec.Values[k])
		if err != nil {
			vb = []byte(`null`)
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// DecodeReply classifies raw model output. Fenced code blocks are unwrapped
// first; then the text is decoded as JSON with object key order preserved.
// An array of objects becomes KindRecords, a lone object KindRecord, and
// anything else (including invalid JSON) KindScalar.
func DecodeReply(text string) Reply {
	raw := stripFences(strings.TrimSpace(text))
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ScalarReply(strings.TrimSpace(text))
	}
	switch trimmed[0] {
	case '[':
		recs, err := decodeRecords(trimmed)
		if err == nil {
			return RecordsReply(recs)
		}
	case '{':
		rec, err := decodeRecord(trimmed)
		if err == nil {
			return RecordReply(rec)
		}
	}
	// Bare JSON scalars and non-JSON text both display as-is.
	return ScalarReply(unquoteScalar(trimmed))
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// unquoteScalar turns a bare JSON string literal back into its text.
func unquoteScalar(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var out string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out
		}
	}
	return s
}

// decodeRecords parses a JSON array of objects, preserving each object's key
// order. Any non-object element fails the decode.
func decodeRecords(s string) ([]table.Record, error) {
	dec := newDecoder(s)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("not an array")
	}
	var recs []table.Record
	for dec.More() {
		rec, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}
	return recs, nil
}

// decodeRecord parses a single JSON object, preserving key order.
func decodeRecord(s string) (table.Record, error) {
	dec := newDecoder(s)
	rec, err := decodeObject(dec)
	if err != nil {
		return table.Record{}, err
	}
	if err := expectEOF(dec); err != nil {
		return table.Record{}, err
	}
	return rec, nil
}

func newDecoder(s string) *json.Decoder {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err == nil {
		return fmt.Errorf("trailing content after value")
	}
	return nil
}

// decodeObject consumes one object from the token stream, keeping keys in
// encounter order.
func decodeObject(dec *json.Decoder) (table.Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return table.Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return table.Record{}, fmt.Errorf("not an object")
	}
	rec := table.NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return table.Record{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return table.Record{}, fmt.Errorf("object key is not a string")
		}
		val, err := decodeValue(dec)
		if err != nil {
			return table.Record{}, err
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return table.Record{}, err
	}
	return rec, nil
}

// decodeValue consumes one JSON value. Nested objects decode to plain maps;
// only top-level record keys need ordering.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			var arr []any
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if arr == nil {
				arr = []any{}
			}
			return arr, nil
		case '{':
			m := make(map[string]any)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				m[key] = v
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		return tok, nil
	}
}
