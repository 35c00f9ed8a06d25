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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderConstants(t *testing.T) {
	for _, c := range []struct {
		name       string
		want, have byte
	}{
		{"i64 field", 0x16, FieldI64},
		{"binary field", 0x18, FieldBinary},
		{"list field", 0x19, FieldList},
		{"i32 field", 0x15, FieldI32},
		{"i32 field after skipped field", 0x25, FieldI32Skipped},
		{"single struct list", 0x1c, SingleStructList},
		{"short form i64 header", 0x16, AppendFieldHeader(nil, 1, TypeI64)[0]},
		{"short form root flags header", 0x25, AppendFieldHeader(nil, 2, TypeI32)[0]},
	} {
		if c.want != c.have {
			t.Errorf("%s: want %#x, have %#x", c.name, c.want, c.have)
		}
	}
}

func TestPreamble(t *testing.T) {
	want := []byte{0x82, 0x81, 0x00, 0x09, 0x65, 0x6d, 0x69, 0x74, 0x42, 0x61, 0x74, 0x63, 0x68, 0x1c, 0x1c, 0x18}
	assert.Equal(t, want, Preamble[:])
	assert.Equal(t, "emitBatch", string(Preamble[4:13]))
}

func TestAppendListHeader(t *testing.T) {
	assert.Equal(t, []byte{0x0c}, AppendListHeader(nil, 0, TypeStruct))
	assert.Equal(t, []byte{0x1c}, AppendListHeader(nil, 1, TypeStruct))
	assert.Equal(t, []byte{0xec}, AppendListHeader(nil, 14, TypeStruct))
	assert.Equal(t, []byte{0xfc, 0x0f}, AppendListHeader(nil, 15, TypeStruct))
	assert.Equal(t, []byte{0xfc, 0xac, 0x02}, AppendListHeader(nil, 300, TypeStruct))
	assert.Equal(t, []byte{0x28}, AppendListHeader(nil, 2, TypeBinary))
}

func TestAppendBinary(t *testing.T) {
	assert.Equal(t, []byte{0x00}, AppendBinary(nil, nil))
	assert.Equal(t, []byte{0x03, 'k', ':', 'v'}, AppendBinary(nil, []byte("k:v")))
	assert.Equal(t, AppendBinary(nil, []byte("service")), AppendString(nil, "service"))

	long := make([]byte, 200)
	have := AppendBinary([]byte{0xaa}, long)
	assert.Equal(t, []byte{0xaa, 0xc8, 0x01}, have[:3])
	assert.Len(t, have, 203)
}

func TestAppendBinaryField(t *testing.T) {
	assert.Equal(t, []byte{0x18, 0x01, 'x'}, AppendBinaryField(nil, []byte("x")))
	assert.Equal(t, []byte{0x00}, AppendStop(nil))
}
