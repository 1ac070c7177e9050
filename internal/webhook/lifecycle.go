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
	"fmt"
	"net/http"
)

// State is a step in the handling of one notification request
type State int

const (
	StateReceived State = iota
	StateVerified
	StateRejected
	StateClassified
	StateBadRequest
	StateSkipped
	StateThrottled
	StateDispatched
	StateDispatchFailed
	StateResponded
)

var stateNames = map[State]string{
	StateReceived:       "received",
	StateVerified:       "verified",
	StateRejected:       "rejected",
	StateClassified:     "classified",
	StateBadRequest:     "bad_request",
	StateSkipped:        "skipped",
	StateThrottled:      "throttled",
	StateDispatched:     "dispatched",
	StateDispatchFailed: "dispatch_failed",
	StateResponded:      "responded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists the successors of every state. An unreadable body goes
// straight from received to bad_request.
var transitions = map[State][]State{
	StateReceived:       {StateVerified, StateRejected, StateBadRequest},
	StateVerified:       {StateClassified, StateBadRequest},
	StateClassified:     {StateSkipped, StateThrottled, StateDispatched, StateDispatchFailed},
	StateRejected:       {StateResponded},
	StateBadRequest:     {StateResponded},
	StateSkipped:        {StateResponded},
	StateThrottled:      {StateResponded},
	StateDispatched:     {StateResponded},
	StateDispatchFailed: {StateResponded},
	StateResponded:      nil,
}

// Terminal reports whether s is an outcome that must be answered next
func (s State) Terminal() bool {
	next := transitions[s]
	return len(next) == 1 && next[0] == StateResponded
}

// Next returns to when the transition from s is allowed
func (s State) Next(to State) (State, error) {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return to, nil
		}
	}
	return s, fmt.Errorf("invalid request state transition %s -> %s", s, to)
}

// StatusCode is the HTTP status answered for a terminal state
func (s State) StatusCode() int {
	switch s {
	case StateRejected:
		return http.StatusUnauthorized
	case StateBadRequest:
		return http.StatusBadRequest
	case StateThrottled:
		return http.StatusTooManyRequests
	case StateDispatchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// exchange tracks one request through its states
type exchange struct {
	state State
}

// advance moves the exchange to the next state. Handlers only request
// transitions listed in the table, so a failure is a programming error.
func (e *exchange) advance(to State) {
	next, err := e.state.Next(to)
	if err != nil {
		panic(err)
	}
	e.state = next
}
