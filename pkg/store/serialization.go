// Package store - serialization helpers for BadgerDB values.
package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embedding blob layout:
//
//	[2 bytes] model tag length (big endian)
//	[n bytes] model tag (UTF-8)
//	[4 bytes × dim] float32 little endian
//
// The tag travels with the vector so heterogeneous models can never be mixed
// silently: Snapshot() compares tags against the probe's and fails loudly.
func encodeEmbedding(model string, vec []float32) []byte {
	buf := make([]byte, 2+len(model)+4*len(vec))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(model)))
	copy(buf[2:], model)
	off := 2 + len(model)
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return buf
}

func decodeEmbedding(data []byte) (model string, vec []float32, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("embedding blob too short: %d bytes", len(data))
	}
	tagLen := int(binary.BigEndian.Uint16(data[0:2]))
	if len(data) < 2+tagLen {
		return "", nil, fmt.Errorf("embedding blob truncated inside model tag")
	}
	model = string(data[2 : 2+tagLen])
	rest := data[2+tagLen:]
	if len(rest)%4 != 0 {
		return "", nil, fmt.Errorf("embedding payload not a multiple of 4 bytes")
	}
	vec = make([]float32, len(rest)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[i*4:]))
	}
	return model, vec, nil
}
