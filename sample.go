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

package jaegertracer

// Sampler functions return if a local trace should be recorded, based on the
// id of its root span.
type Sampler func(id uint64) bool

// AlwaysSample records every trace.
func AlwaysSample(uint64) bool { return true }

// NeverSample records no trace.
func NeverSample(uint64) bool { return false }

// NewModuloSampler records one out of every mod traces. mod < 2 records all.
func NewModuloSampler(mod uint64) Sampler {
	if mod < 2 {
		return AlwaysSample
	}
	return func(id uint64) bool {
		return id%mod == 0
	}
}
