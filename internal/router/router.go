// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package router

import (
	"fmt"
	"strings"

	"github.com/mikelane/driftrelay/internal/config"
	"github.com/mikelane/driftrelay/internal/dispatch"
	"github.com/mikelane/driftrelay/internal/notification"
)

// Decision is the router's answer for one envelope
type Decision struct {
	// Action is false when nothing should be dispatched
	Action      bool
	Operation   dispatch.Operation
	WorkspaceID string
	// Reason explains the decision for logs and responses
	Reason string
}

// rule maps an envelope of one kind to a decision
type rule func(env *notification.Envelope) Decision

// Router selects the operation for the conditional endpoint. It is the only
// place where event kinds are mapped to actions.
type Router struct {
	rules map[notification.Kind]rule
}

// New builds a router with the default rules plus the opt-in rules enabled
// in policy
func New(policy config.Policy) *Router {
	return &Router{
		rules: map[notification.Kind]rule{
			notification.KindVerification:           skip("verification probe"),
			notification.KindAssessmentCheckFailure: dispatchOn(dispatch.OperationApply, "drift detected"),
			notification.KindRunCompleted:           runCompleted(policy),
			notification.KindOther:                  skip("no rule for this notification"),
		},
	}
}

// Route returns the decision for env
func (r *Router) Route(env *notification.Envelope) Decision {
	if env == nil {
		return Decision{Reason: "no notification"}
	}
	rule, ok := r.rules[env.Kind]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown notification kind %q", env.Kind)}
	}
	return rule(env)
}

func skip(reason string) rule {
	return func(*notification.Envelope) Decision {
		return Decision{Reason: reason}
	}
}

func dispatchOn(op dispatch.Operation, reason string) rule {
	return func(env *notification.Envelope) Decision {
		return Decision{Action: true, Operation: op, WorkspaceID: env.WorkspaceID, Reason: reason}
	}
}

// runCompleted never acts unless the policy opts in. A teardown run is
// checked before an errored one so destroy intent wins.
func runCompleted(policy config.Policy) rule {
	return func(env *notification.Envelope) Decision {
		message := strings.ToLower(env.RunMessage)
		switch {
		case policy.DestroyOnTeardown && (strings.Contains(message, "destroy") || strings.Contains(message, "teardown")):
			return dispatchOn(dispatch.OperationDestroy, "run message requests teardown")(env)
		case policy.RetryErrored && strings.EqualFold(env.RunStatus, "errored"):
			return dispatchOn(dispatch.OperationApply, "previous run errored")(env)
		default:
			return Decision{Reason: "run completed"}
		}
	}
}
