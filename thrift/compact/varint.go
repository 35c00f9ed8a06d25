// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package compact writes the handful of Thrift Compact Protocol primitives
// needed to emit a Jaeger agent emitBatch message. It does not decode and it
// is not a general purpose protocol implementation.
package compact

import "encoding/binary"

// Zigzag32 maps a signed 32 bit integer onto an unsigned one so that values
// of small magnitude stay small once varint encoded.
func Zigzag32(n int32) uint32 {
	return uint32((n << 1) ^ (n >> 31))
}

// Zigzag64 is the 64 bit analogue of Zigzag32.
func Zigzag64(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

// AppendVarint appends n as an unsigned LEB128 varint: 7 bits per byte,
// least significant group first, high bit set while more groups follow.
func AppendVarint(buf []byte, n uint64) []byte {
	return binary.AppendUvarint(buf, n)
}

// AppendI32 appends n zigzag and varint encoded.
func AppendI32(buf []byte, n int32) []byte {
	return AppendVarint(buf, uint64(Zigzag32(n)))
}

// AppendI64 appends n zigzag and varint encoded.
func AppendI64(buf []byte, n int64) []byte {
	return AppendVarint(buf, Zigzag64(n))
}
