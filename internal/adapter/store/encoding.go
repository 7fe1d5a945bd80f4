package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding encodes vec as a little-endian sequence of IEEE 754
// float32 values without a length prefix. This is the same layout numpy
// produces for a float32 array, so databases written by other tools load as-is.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}

// DecodeEmbedding decodes a blob produced by EncodeEmbedding and checks it
// against the declared dimension.
func DecodeEmbedding(b []byte, dim int) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	n := len(b) / 4
	if n != dim {
		return nil, fmt.Errorf("embedding blob holds %d values, declared dim is %d", n, dim)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
