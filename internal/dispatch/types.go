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

package dispatch

import (
	"errors"
	"fmt"
)

// Operation is the kind of remediation run to create
type Operation string

const (
	// OperationApply queues a plan and apply run
	OperationApply Operation = "apply"
	// OperationDestroy queues a plan and destroy run
	OperationDestroy Operation = "destroy"
)

// Valid reports whether o is a known operation
func (o Operation) Valid() bool {
	return o == OperationApply || o == OperationDestroy
}

// RemediationRequest is the run the dispatcher is about to create. It is
// built immediately before the API call and not retained.
type RemediationRequest struct {
	WorkspaceID string
	Operation   Operation
	AutoApply   bool
	Message     string
}

// Result describes a dispatched run
type Result struct {
	RunID       string
	Operation   Operation
	WorkspaceID string
	// Duplicate is set when the notification was already dispatched inside
	// the dedup window and no new run was created
	Duplicate bool
}

// ErrTimeout marks a dispatch that exceeded the configured timeout
var ErrTimeout = errors.New("runs API call timed out")

// Error reports a failed dispatch. The webhook sender is expected to redeliver.
type Error struct {
	Operation   Operation
	WorkspaceID string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s run for workspace %s: %v", e.Operation, e.WorkspaceID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the dispatch failed because the call timed out
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}
