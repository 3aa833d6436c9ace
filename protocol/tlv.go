// Protocol format is based on ToyTLV (MIT licence) written by Victor Grishchenko in 2024
// Original project: https://github.com/learn-decentralized-systems/toytlv

/*
Package protocol holds the byte-level codecs shared by both key spaces of
the store: 4-byte big-endian integers and TLV (Type-Length-Value) framing.

# Integers

Recnos, relation ids, sequence numbers and counts are all written as
4 bytes, most significant byte first: byte[i] = v >>> (24 - 8*i).
Big-endian keeps the byte order of keys equal to the numeric order of
non-negative values, which the update-log scans rely on.

# TLV Record Format

Tuples and their fields are framed as TLV records so that values can be
stored back to back without a separate length table.

 1. Tiny Format (1 byte header) - for records 0-9 bytes:
    [('0' + body_length)]
    Type information is lost, so the store never emits it for fields.

 2. Short Format (2 bytes header) - for records up to 255 bytes:
    [lowercase_type, body_length]

 3. Long Format (5 bytes header) - for records up to 2GB:
    [uppercase_type, length_as_4byte_little_endian]

Record types are restricted to letters A-Z. An uppercase type passed to the
encoders never produces the tiny format.

Everything here is read back from disk, so the readers return explicit
errors instead of trusting their input.
*/
package protocol

import (
	"encoding/binary"
	"errors"
)

const CaseBit uint8 = 'a' - 'A'

var (
	ErrIncomplete = errors.New("incomplete data")
	ErrBadRecord  = errors.New("bad TLV record format")
)

const (
	tinyMax  = 9
	shortMax = 0xff
	longMax  = 0x7fffffff
)

// ProbeHeader reads the header at the start of data. lit is the record
// type in uppercase, '0' for a tiny record, '-' for garbage and 0 when
// data is too short to tell.
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	switch b := data[0]; {
	case b >= '0' && b <= '9':
		return '0', 1, int(b - '0')
	case b >= 'a' && b <= 'z':
		if len(data) < 2 {
			return 0, 0, 0
		}
		return b - CaseBit, 2, int(data[1])
	case b >= 'A' && b <= 'Z':
		if len(data) < 5 {
			return 0, 0, 0
		}
		n := binary.LittleEndian.Uint32(data[1:5])
		if n > longMax {
			return '-', 0, 0
		}
		return b, 5, int(n)
	}
	return '-', 0, 0
}

// AppendHeader picks the smallest header for bodylen. Only a lowercase
// lit may collapse into the typeless tiny form.
func AppendHeader(into []byte, lit byte, bodylen int) []byte {
	upper := lit &^ CaseBit
	if upper < 'A' || upper > 'Z' {
		panic("TLV record type is A..Z")
	}
	switch {
	case bodylen <= tinyMax && lit&CaseBit != 0:
		return append(into, byte('0'+bodylen))
	case bodylen <= shortMax:
		return append(into, upper|CaseBit, byte(bodylen))
	case bodylen <= longMax:
		into = append(into, upper)
		return binary.LittleEndian.AppendUint32(into, uint32(bodylen))
	}
	panic("oversized TLV record")
}

// TakeWary cuts one record of type lit off data. A tiny record is
// accepted for any type. On ErrIncomplete rest is data unchanged.
func TakeWary(lit byte, data []byte) (body, rest []byte, err error) {
	got, hdrlen, bodylen := ProbeHeader(data)
	end := hdrlen + bodylen
	switch {
	case got == '-':
		return nil, nil, ErrBadRecord
	case got == 0 || end > len(data):
		return nil, data, ErrIncomplete
	case got != lit && got != '0':
		return nil, nil, ErrBadRecord
	}
	return data[hdrlen:end], data[end:], nil
}

// TakeAnyWary cuts the next record off data whatever its type.
func TakeAnyWary(data []byte) (lit byte, body, rest []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil, ErrIncomplete
	}
	lit, _, _ = ProbeHeader(data)
	if lit == '-' {
		return 0, nil, nil, ErrBadRecord
	}
	body, rest, err = TakeWary(lit, data)
	return
}

// Append writes a record with the concatenated body parts.
func Append(into []byte, lit byte, body ...[]byte) []byte {
	total := 0
	for _, b := range body {
		total += len(b)
	}
	into = AppendHeader(into, lit, total)
	for _, b := range body {
		into = append(into, b...)
	}
	return into
}

// OpenHeader starts a record whose length is not known yet, always in
// the long form. CloseHeader fills the length in:
//
//	bookmark, buf := OpenHeader(buf, 'T')
//	buf = append(buf, fields...)
//	CloseHeader(buf, bookmark)
func OpenHeader(buf []byte, lit byte) (bookmark int, res []byte) {
	lit &^= CaseBit
	if lit < 'A' || lit > 'Z' {
		panic("TLV record type is A..Z")
	}
	res = append(buf, lit, 0, 0, 0, 0)
	return len(res), res
}

// CloseHeader panics on a bookmark OpenHeader did not return.
func CloseHeader(buf []byte, bookmark int) {
	if bookmark < 5 || len(buf) < bookmark {
		panic("bad TLV bookmark")
	}
	binary.LittleEndian.PutUint32(buf[bookmark-4:bookmark], uint32(len(buf)-bookmark))
}
