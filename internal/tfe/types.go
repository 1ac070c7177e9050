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

package tfe

import (
	"context"
)

// Client defines the contract for talking to the Terraform Runs API
type Client interface {
	// CreateRun queues a plan and apply (or plan and destroy) run in a workspace
	CreateRun(ctx context.Context, req *RunRequest) (*Run, error)
}

// RunRequest describes a run to create
type RunRequest struct {
	WorkspaceID string
	IsDestroy   bool
	AutoApply   bool
	Message     string
}

// Run is the subset of a created run the relay reports back
type Run struct {
	ID        string
	Status    string
	IsDestroy bool
	AutoApply bool
	Message   string
}

// APIError is a non-2xx answer or transport failure from the Runs API
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return "tfe: " + e.Op + ": " + e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}
