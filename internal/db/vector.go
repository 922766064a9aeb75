package db

import (
	"encoding/binary"
	"math"
)

// VectorToBytes encodes a float32 vector as the little-endian FLOAT32 blob FT indexes expect.
func VectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
