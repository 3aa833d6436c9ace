package tuple

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
	"github.com/jeffdeville/penn-orchestra-sub006/protocol"
)

// litTuple frames a whole encoded tuple.
const litTuple = 'T'

// Tuple is an immutable row of a relation. Construct it with New; there
// is no way to change a value afterwards.
type Tuple struct {
	schema *Schema
	vals   []any
}

// New checks vals against the schema and converts them to the canonical
// Go type of each field (int32, int64, float64, string, bool, time.Time).
func New(s *Schema, vals ...any) (*Tuple, error) {
	if len(vals) != len(s.Fields) {
		return nil, fmt.Errorf("relation %s has %d fields, got %d values", s.Name, len(s.Fields), len(vals))
	}
	t := &Tuple{schema: s, vals: make([]any, len(vals))}
	for i, v := range vals {
		f := s.Fields[i]
		if v == nil {
			if !f.Nullable {
				return nil, fmt.Errorf("%s.%s is not nullable", s.Name, f.Name)
			}
			continue
		}
		nv, err := f.Type.normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		t.vals[i] = nv
	}
	return t, nil
}

func MustNew(s *Schema, vals ...any) *Tuple {
	t, err := New(s, vals...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tuple) Schema() *Schema {
	return t.schema
}

func (t *Tuple) Len() int {
	return len(t.vals)
}

func (t *Tuple) Get(i int) any {
	return t.vals[i]
}

// Equal compares relation and every field. Two nil tuples are equal.
func (t *Tuple) Equal(o *Tuple) bool {
	if t == nil || o == nil {
		return t == nil && o == nil
	}
	if t.schema.ID != o.schema.ID || len(t.vals) != len(o.vals) {
		return false
	}
	for i, f := range t.schema.Fields {
		if !f.Type.equal(t.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

// SameKey reports whether both tuples belong to one relation and agree on
// the key fields.
func (t *Tuple) SameKey(o *Tuple) bool {
	if t == nil || o == nil {
		return false
	}
	if t.schema.ID != o.schema.ID {
		return false
	}
	for _, i := range t.schema.Key {
		if !t.schema.Fields[i].Type.equal(t.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

// Duplicate returns an independent copy. Field values are immutable Go
// values, so copying the slice is a deep copy.
func (t *Tuple) Duplicate() *Tuple {
	if t == nil {
		return nil
	}
	vals := make([]any, len(t.vals))
	copy(vals, t.vals)
	return &Tuple{schema: t.schema, vals: vals}
}

// KeyBytes is the relation id followed by the key fields in key order.
// The result is prefix-free: no key is a prefix of another key.
func (t *Tuple) KeyBytes() []byte {
	key := protocol.IntToBytes(t.schema.ID)
	for _, i := range t.schema.Key {
		key = t.schema.Fields[i].Type.appendKey(key, t.vals[i])
	}
	return key
}

// Bytes is the full canonical encoding, a single 'T' record.
func (t *Tuple) Bytes() []byte {
	return t.AppendBytes(nil)
}

func (t *Tuple) AppendBytes(into []byte) []byte {
	bm, into := protocol.OpenHeader(into, litTuple)
	into = protocol.AppendInt(into, t.schema.ID)
	for i, f := range t.schema.Fields {
		into = f.Type.appendValue(into, t.vals[i])
	}
	protocol.CloseHeader(into, bm)
	return into
}

// Decode reads one tuple from the head of data.
func Decode(r Resolver, data []byte) (t *Tuple, rest []byte, err error) {
	body, rest, err := protocol.TakeWary(litTuple, data)
	if err != nil {
		return nil, data, errors.Wrap(orchestra_errors.ErrBadEncoding, err.Error())
	}
	relid, body, err := protocol.TakeInt(body)
	if err != nil {
		return nil, data, errors.Wrap(orchestra_errors.ErrBadEncoding, "tuple relation id")
	}
	s, err := r.ByID(relid)
	if err != nil {
		return nil, data, err
	}
	t = &Tuple{schema: s, vals: make([]any, len(s.Fields))}
	for i, f := range s.Fields {
		lit, val, more, err := protocol.TakeAnyWary(body)
		if err != nil {
			return nil, data, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%s.%s: %s", s.Name, f.Name, err)
		}
		body = more
		if lit == litNull {
			if !f.Nullable {
				return nil, data, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%s.%s is null", s.Name, f.Name)
			}
			continue
		}
		if Type(lit) != f.Type {
			return nil, data, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%s.%s: %c record", s.Name, f.Name, lit)
		}
		if t.vals[i], err = f.Type.decodeValue(val); err != nil {
			return nil, data, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%s.%s: %s", s.Name, f.Name, err)
		}
	}
	if len(body) != 0 {
		return nil, data, errors.Wrapf(orchestra_errors.ErrBadEncoding, "%d trailing bytes in %s tuple", len(body), s.Name)
	}
	return t, rest, nil
}

// DecodeAll decodes data holding exactly one tuple.
func DecodeAll(r Resolver, data []byte) (*Tuple, error) {
	t, rest, err := Decode(r, data)
	if err == nil && len(rest) != 0 {
		err = errors.Wrapf(orchestra_errors.ErrBadEncoding, "%d bytes after tuple", len(rest))
	}
	return t, err
}

// Parse builds a tuple of s from one text value per field.
func (s *Schema) Parse(texts []string) (*Tuple, error) {
	if len(texts) != len(s.Fields) {
		return nil, fmt.Errorf("relation %s has %d fields, got %d values", s.Name, len(s.Fields), len(texts))
	}
	vals := make([]any, len(texts))
	for i, f := range s.Fields {
		v, err := f.Type.Parse(texts[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		vals[i] = v
	}
	return New(s, vals...)
}

// ParseKey builds a lookup probe from the key fields alone, in key
// order. Non-key fields of the probe are empty; only use it where the
// key matters.
func (s *Schema) ParseKey(texts []string) (*Tuple, error) {
	if len(texts) != len(s.Key) {
		return nil, fmt.Errorf("relation %s has %d key fields, got %d values", s.Name, len(s.Key), len(texts))
	}
	vals := make([]any, len(s.Fields))
	for i, fi := range s.Key {
		f := s.Fields[fi]
		v, err := f.Type.Parse(texts[i])
		if err == nil && v == nil {
			err = fmt.Errorf("key field may not be null")
		}
		if err == nil {
			v, err = f.Type.normalize(v)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, err)
		}
		vals[fi] = v
	}
	return &Tuple{schema: s, vals: vals}, nil
}

func (t *Tuple) String() string {
	if t == nil {
		return "<none>"
	}
	var sb strings.Builder
	sb.WriteString(t.schema.Name)
	sb.WriteByte('(')
	for i, f := range t.schema.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Type.format(t.vals[i]))
	}
	sb.WriteByte(')')
	return sb.String()
}
