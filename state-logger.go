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
	"sync"
	"time"

	"github.com/go-kit/log"
)

// StateLogger logs a failing operation's error only when it differs from the
// last one logged, or when logErrorInterval has passed since then. Errors are
// compared by message since transports return a fresh value per failure.
type StateLogger struct {
	logger           log.Logger
	logErrorInterval time.Duration
	failing          bool
	lastError        string
	lastErrorTime    time.Time
	mutex            sync.Mutex
}

// NewStateLogger creates a new StateLogger writing to logger.
func NewStateLogger(logger log.Logger, logErrorInterval time.Duration) *StateLogger {
	return &StateLogger{
		logger:           logger,
		logErrorInterval: logErrorInterval,
	}
}

// LogError logs err unless the same error was logged less than
// logErrorInterval ago.
func (se *StateLogger) LogError(err error) {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	msg := err.Error()
	if se.failing && msg == se.lastError && time.Since(se.lastErrorTime) < se.logErrorInterval {
		return
	}
	_ = se.logger.Log("err", msg)
	se.failing = true
	se.lastError = msg
	se.lastErrorTime = time.Now()
}

// Fixed marks the operation as healthy again. If it was failing keyVal is
// logged once, and the next error is logged regardless of the interval.
func (se *StateLogger) Fixed(keyVal ...interface{}) {
	se.mutex.Lock()
	defer se.mutex.Unlock()
	if !se.failing {
		return
	}
	_ = se.logger.Log(keyVal...)
	se.failing = false
}
