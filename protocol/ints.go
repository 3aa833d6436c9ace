package protocol

import (
	"encoding/binary"
	"errors"
)

const IntLen = 4

var ErrShortInt = errors.New("fewer than 4 bytes for an integer")

// IntToBytes encodes v big-endian into a fresh 4-byte slice.
func IntToBytes(v int32) []byte {
	return AppendInt(make([]byte, 0, IntLen), v)
}

// AppendInt appends the 4-byte big-endian form of v.
func AppendInt(into []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(into, uint32(v))
}

// BytesToInt decodes the first 4 bytes of data.
func BytesToInt(data []byte) (int32, error) {
	if len(data) < IntLen {
		return 0, ErrShortInt
	}
	return int32(binary.BigEndian.Uint32(data[:IntLen])), nil
}

// TakeInt decodes a leading integer and returns what follows it.
func TakeInt(data []byte) (v int32, rest []byte, err error) {
	v, err = BytesToInt(data)
	if err != nil {
		return 0, data, err
	}
	return v, data[IntLen:], nil
}

// SplitTrailingInt separates a key from the integer suffix appended to it,
// as in update-log keys (key ++ recno).
func SplitTrailingInt(data []byte) (head []byte, v int32, err error) {
	if len(data) < IntLen {
		return nil, 0, ErrShortInt
	}
	cut := len(data) - IntLen
	v, err = BytesToInt(data[cut:])
	return data[:cut], v, err
}
