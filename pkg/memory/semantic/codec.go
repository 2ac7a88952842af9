package semantic

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SerializeFloat32 converts a float32 slice to a little-endian byte slice
// for BLOB storage. Element width is 4 bytes; the element count is
// persisted alongside the blob in the dims column.
func SerializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DeserializeFloat32 converts a little-endian byte slice back to a float32
// slice, validating it against the expected element count.
func DeserializeFloat32(b []byte, dims int) ([]float32, error) {
	if len(b) != dims*4 {
		return nil, fmt.Errorf("invalid embedding blob length %d: want %d elements of 4 bytes", len(b), dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
