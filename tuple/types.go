package tuple

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jeffdeville/penn-orchestra-sub006/protocol"
)

// Type of a field. The byte doubles as the TLV record type of the
// field's value in the full tuple encoding.
type Type byte

const (
	Int    Type = 'I' // int32
	Long   Type = 'L' // int64
	Double Type = 'D' // float64
	String Type = 'S'
	Bool   Type = 'B'
	Date   Type = 'M' // time.Time, UTC, millisecond precision
)

// null marker in the full encoding
const litNull = 'N'

const signBit32 = uint32(1) << 31
const signBit64 = uint64(1) << 63

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Long:
		return "long"
	case Double:
		return "double"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Date:
		return "date"
	}
	return fmt.Sprintf("type(%c)", byte(t))
}

// ParseType accepts the names printed by Type.String.
func ParseType(name string) (Type, error) {
	for _, t := range []Type{Int, Long, Double, String, Bool, Date} {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", name)
}

func (t Type) valid() bool {
	switch t {
	case Int, Long, Double, String, Bool, Date:
		return true
	}
	return false
}

// normalize converts a Go value to the canonical representation of t.
func (t Type) normalize(v any) (any, error) {
	switch t {
	case Int:
		switch n := v.(type) {
		case int32:
			return n, nil
		case int:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%d overflows int", n)
			}
			return int32(n), nil
		}
	case Long:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		}
	case Double:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Date:
		if d, ok := v.(time.Time); ok {
			return time.UnixMilli(d.UnixMilli()).UTC(), nil
		}
	}
	return nil, fmt.Errorf("%T is not a %s value", v, t)
}

func (t Type) equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch t {
	case Double:
		return math.Float64bits(a.(float64)) == math.Float64bits(b.(float64))
	case Date:
		return a.(time.Time).Equal(b.(time.Time))
	}
	return a == b
}

// appendKey appends the order-preserving, prefix-free key form of v.
func (t Type) appendKey(into []byte, v any) []byte {
	switch t {
	case Int:
		return binary.BigEndian.AppendUint32(into, uint32(v.(int32))^signBit32)
	case Long:
		return binary.BigEndian.AppendUint64(into, uint64(v.(int64))^signBit64)
	case Date:
		return binary.BigEndian.AppendUint64(into, uint64(v.(time.Time).UnixMilli())^signBit64)
	case Double:
		bits := math.Float64bits(v.(float64))
		if bits&signBit64 != 0 {
			bits = ^bits
		} else {
			bits |= signBit64
		}
		return binary.BigEndian.AppendUint64(into, bits)
	case Bool:
		if v.(bool) {
			return append(into, 1)
		}
		return append(into, 0)
	case String:
		s := v.(string)
		for i := 0; i < len(s); i++ {
			into = append(into, s[i])
			if s[i] == 0 {
				into = append(into, 0xff)
			}
		}
		return append(into, 0, 1)
	}
	panic("unknown field type")
}

// appendValue appends the TLV record of v; nil becomes a null record.
func (t Type) appendValue(into []byte, v any) []byte {
	if v == nil {
		return protocol.Append(into, litNull)
	}
	var body []byte
	switch t {
	case Int:
		body = protocol.IntToBytes(v.(int32))
	case Long:
		body = binary.BigEndian.AppendUint64(nil, uint64(v.(int64)))
	case Date:
		body = binary.BigEndian.AppendUint64(nil, uint64(v.(time.Time).UnixMilli()))
	case Double:
		body = binary.BigEndian.AppendUint64(nil, math.Float64bits(v.(float64)))
	case Bool:
		body = []byte{0}
		if v.(bool) {
			body[0] = 1
		}
	case String:
		body = []byte(v.(string))
	}
	return protocol.Append(into, byte(t), body)
}

func (t Type) decodeValue(body []byte) (any, error) {
	switch t {
	case Int:
		if len(body) != protocol.IntLen {
			return nil, fmt.Errorf("%s value of %d bytes", t, len(body))
		}
		return protocol.BytesToInt(body)
	case Long, Date, Double:
		if len(body) != 8 {
			return nil, fmt.Errorf("%s value of %d bytes", t, len(body))
		}
		n := binary.BigEndian.Uint64(body)
		switch t {
		case Long:
			return int64(n), nil
		case Date:
			return time.UnixMilli(int64(n)).UTC(), nil
		}
		return math.Float64frombits(n), nil
	case Bool:
		if len(body) != 1 || body[0] > 1 {
			return nil, fmt.Errorf("bad bool value")
		}
		return body[0] == 1, nil
	case String:
		return string(body), nil
	}
	return nil, fmt.Errorf("unknown field type %c", byte(t))
}

// Parse reads a value of type t from its text form, as typed in the shell.
// "null" yields nil.
func (t Type) Parse(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "null" {
		return nil, nil
	}
	switch t {
	case Int:
		n, err := strconv.ParseInt(text, 10, 32)
		return int32(n), err
	case Long:
		return strconv.ParseInt(text, 10, 64)
	case Double:
		return strconv.ParseFloat(text, 64)
	case Bool:
		return strconv.ParseBool(text)
	case Date:
		d, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, err
		}
		return t.normalize(d)
	case String:
		if uq, err := strconv.Unquote(text); err == nil {
			return uq, nil
		}
		return text, nil
	}
	return nil, fmt.Errorf("unknown field type %c", byte(t))
}

func (t Type) format(v any) string {
	if v == nil {
		return "null"
	}
	switch t {
	case String:
		return strconv.Quote(v.(string))
	case Date:
		return v.(time.Time).Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
