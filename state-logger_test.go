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

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

var safeWait = 100 * time.Millisecond

const fixed = "fixed"

type mockLogger struct {
	mock.Mock
}

// Log is a mock for the log function
func (l *mockLogger) Log(keyvals ...interface{}) error {
	args := l.Called(keyvals...)
	return args.Error(0)
}

func TestStateLogger(t *testing.T) {
	err1 := fmt.Errorf("write udp: connection refused")
	err2 := fmt.Errorf("write udp: message too long")

	m := new(mockLogger)
	l := NewStateLogger(m, safeWait)

	m.On("Log", "err", err1.Error()).Return(nil).Once()
	l.LogError(err1)
	m.AssertNumberOfCalls(t, "Log", 1)

	m.On("Log", "err", err2.Error()).Return(nil).Once()
	l.LogError(err2)
	m.AssertNumberOfCalls(t, "Log", 2)

	m.On("Log", "err", err1.Error()).Return(nil).Once()
	l.LogError(err1)
	l.LogError(err1)
	m.AssertNumberOfCalls(t, "Log", 3)

	time.Sleep(safeWait)

	m.On("Log", "err", err1.Error()).Return(nil).Once()
	l.LogError(err1)
	l.LogError(err1)
	m.AssertNumberOfCalls(t, "Log", 4)

	m.On("Log", fixed).Return(nil).Once()
	l.Fixed(fixed)
	m.AssertNumberOfCalls(t, "Log", 5)

	l.Fixed(fixed)
	m.AssertNumberOfCalls(t, "Log", 5)

	m.On("Log", "err", err1.Error()).Return(nil).Once()
	l.LogError(err1)
	m.AssertNumberOfCalls(t, "Log", 6)
}

func TestStateLoggerAlwaysLog(t *testing.T) {
	err1 := fmt.Errorf("error 1")

	m := new(mockLogger)
	l := NewStateLogger(m, 0)

	m.On("Log", "err", err1.Error()).Return(nil).Times(3)
	l.LogError(err1)
	l.LogError(err1)
	l.LogError(err1)
	m.AssertNumberOfCalls(t, "Log", 3)
}

func TestStateFirstFixed(t *testing.T) {
	m := new(mockLogger)
	l := NewStateLogger(m, safeWait)

	l.Fixed(fixed)
	m.AssertNumberOfCalls(t, "Log", 0)
}

func TestStateErrorsWithTheSameMessage(t *testing.T) {
	err := fmt.Errorf("error 1")
	errCopy := fmt.Errorf("error 1")

	m := new(mockLogger)
	l := NewStateLogger(m, safeWait)

	m.On("Log", "err", err.Error()).Return(nil).Once()
	l.LogError(err)
	m.AssertNumberOfCalls(t, "Log", 1)
	l.LogError(errCopy)
	m.AssertNumberOfCalls(t, "Log", 1)
}
