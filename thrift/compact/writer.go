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

package compact

// Type codes of the compact protocol used by the emitBatch schema.
const (
	TypeI32    byte = 5
	TypeI64    byte = 6
	TypeBinary byte = 8
	TypeList   byte = 9
	TypeStruct byte = 12
)

// Stop terminates a struct.
const Stop byte = 0x00

// Field headers of the emitBatch schema. Fields are always written in
// declared order, so every delta is 1 except the flags field of a root span,
// which follows the omitted references field.
const (
	FieldI64        = 1<<4 | TypeI64    // 0x16
	FieldBinary     = 1<<4 | TypeBinary // 0x18
	FieldList       = 1<<4 | TypeList   // 0x19
	FieldI32        = 1<<4 | TypeI32    // 0x15
	FieldI32Skipped = 2<<4 | TypeI32    // 0x25

	// SingleStructList is the list header of a one element struct list.
	SingleStructList = 1<<4 | TypeStruct // 0x1c
)

// Preamble is the message header up to and including the service name field
// header of the process struct:
//
//	0x82              protocol id
//	0x81              oneway message type, version 1
//	0x00              sequence id
//	0x09 "emitBatch"  method name
//	0x1c              batch struct argument, field 1
//	0x1c              process struct, field 1
//	0x18              service name, field 1
var Preamble = [16]byte{
	0x82, 0x81, 0x00, 0x09,
	'e', 'm', 'i', 't', 'B', 'a', 't', 'c', 'h',
	0x1c, 0x1c, 0x18,
}

// AppendBinary appends b as a length prefixed binary value.
func AppendBinary(buf []byte, b []byte) []byte {
	buf = AppendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// AppendString is AppendBinary for strings.
func AppendString(buf []byte, s string) []byte {
	buf = AppendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// AppendFieldHeader appends the short form field header. delta must be in
// [1, 15].
func AppendFieldHeader(buf []byte, delta, typ byte) []byte {
	return append(buf, delta<<4|typ)
}

// AppendListHeader appends a list header, using the extended form when size
// does not fit the four bits of the short form.
func AppendListHeader(buf []byte, size int, elem byte) []byte {
	if size < 15 {
		return append(buf, byte(size)<<4|elem)
	}
	buf = append(buf, 0xf0|elem)
	return AppendVarint(buf, uint64(size))
}

// AppendI64Field appends an i64 field header with delta 1 followed by n.
func AppendI64Field(buf []byte, n int64) []byte {
	buf = append(buf, FieldI64)
	return AppendI64(buf, n)
}

// AppendBinaryField appends a binary field header with delta 1 followed by b.
func AppendBinaryField(buf []byte, b []byte) []byte {
	buf = append(buf, FieldBinary)
	return AppendBinary(buf, b)
}

// AppendStop terminates a struct.
func AppendStop(buf []byte) []byte {
	return append(buf, Stop)
}
