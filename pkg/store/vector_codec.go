// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/binary"
	"math"
)

// encodeFloat32 packs a float32 vector into a little-endian byte slice,
// the raw BLOB layout used for the sqlite-vec fast path, so both vector
// backends can share one on-disk representation.
func encodeFloat32(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32 is the inverse of encodeFloat32.
func decodeFloat32(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// EncodeFloat32 exposes encodeFloat32 to sibling packages (the embedding
// generator and vector backends) that need the same BLOB layout.
func EncodeFloat32(v []float32) []byte { return encodeFloat32(v) }

// DecodeFloat32 exposes decodeFloat32 to sibling packages.
func DecodeFloat32(buf []byte) []float32 { return decodeFloat32(buf) }
