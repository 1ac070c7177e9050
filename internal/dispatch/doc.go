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

// Package dispatch turns classified notifications into Terraform runs.
//
// A Dispatcher makes exactly one Runs API call per Dispatch. Calls are
// bounded by the configured dispatch timeout and are never retried: a
// failure is returned as *Error and the webhook layer answers with a 5xx so
// the notification service redelivers.
//
// Duplicate deliveries:
//
// The notification service delivers at least once. Without a dedup window a
// redelivered notification creates a second run. With TFE_DEDUP_WINDOW set,
// notifications that carry a stable id (assessment result id, or run id with
// trigger and update time) are remembered after a successful dispatch and a
// repeat inside the window returns the earlier run id without calling the
// API. Memory is process-local and lost on restart.
package dispatch
