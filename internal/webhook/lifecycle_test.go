// Copyright 2025 The Previewd Authors
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

package webhook

import (
	"net/http"
	"testing"
)

var allStates = []State{
	StateReceived, StateVerified, StateRejected, StateClassified, StateBadRequest,
	StateSkipped, StateThrottled, StateDispatched, StateDispatchFailed, StateResponded,
}

// TestTransitions_Total verifies that every state has an entry in the table
func TestTransitions_Total(t *testing.T) {
	for _, s := range allStates {
		if _, ok := transitions[s]; !ok {
			t.Errorf("state %s has no transitions entry", s)
		}
		if _, ok := stateNames[s]; !ok {
			t.Errorf("state %d has no name", int(s))
		}
	}
}

func TestState_Next(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateReceived, StateVerified, true},
		{StateReceived, StateRejected, true},
		{StateReceived, StateBadRequest, true},
		{StateReceived, StateClassified, false},
		{StateReceived, StateDispatched, false},
		{StateVerified, StateClassified, true},
		{StateVerified, StateBadRequest, true},
		{StateVerified, StateRejected, false},
		{StateClassified, StateSkipped, true},
		{StateClassified, StateThrottled, true},
		{StateClassified, StateDispatched, true},
		{StateClassified, StateDispatchFailed, true},
		{StateClassified, StateResponded, false},
		{StateDispatched, StateResponded, true},
		{StateDispatched, StateDispatchFailed, false},
		{StateResponded, StateReceived, false},
	}

	for _, tt := range tests {
		next, err := tt.from.Next(tt.to)
		if tt.ok {
			if err != nil || next != tt.to {
				t.Errorf("%s -> %s returns (%s, %v), expected allowed", tt.from, tt.to, next, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s -> %s allowed, expected an error", tt.from, tt.to)
		}
		if next != tt.from {
			t.Errorf("%s -> %s moved to %s on error", tt.from, tt.to, next)
		}
	}
}

func TestState_TerminalStatusCodes(t *testing.T) {
	want := map[State]int{
		StateRejected:       http.StatusUnauthorized,
		StateBadRequest:     http.StatusBadRequest,
		StateSkipped:        http.StatusOK,
		StateThrottled:      http.StatusTooManyRequests,
		StateDispatched:     http.StatusOK,
		StateDispatchFailed: http.StatusBadGateway,
	}

	for _, s := range allStates {
		code, terminal := want[s]
		if s.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v, expected %v", s, s.Terminal(), terminal)
		}
		if terminal && s.StatusCode() != code {
			t.Errorf("%s.StatusCode() = %d, expected %d", s, s.StatusCode(), code)
		}
	}
}

func TestExchange_AdvancePanicsOnInvalidTransition(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("advance did not panic on an invalid transition")
		}
	}()

	ex := &exchange{state: StateReceived}
	ex.advance(StateDispatched)
}

func TestState_String(t *testing.T) {
	if got := StateDispatchFailed.String(); got != "dispatch_failed" {
		t.Errorf("String() = %q, expected %q", got, "dispatch_failed")
	}
	if got := State(99).String(); got != "State(99)" {
		t.Errorf("String() = %q, expected %q", got, "State(99)")
	}
}
