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

package notification

import (
	"fmt"
)

// Kind classifies a notification delivery
type Kind string

const (
	// KindVerification is the probe sent when a notification configuration is created or tested
	KindVerification Kind = "verification"
	// KindAssessmentCheckFailure is a health assessment that detected drift
	KindAssessmentCheckFailure Kind = "assessment_check_failure"
	// KindRunCompleted is a run that reached a terminal state
	KindRunCompleted Kind = "run_completed"
	// KindOther is any recognisable notification that needs no action
	KindOther Kind = "other"
)

// Kinds returns every kind, in classification order
func Kinds() []Kind {
	return []Kind{KindVerification, KindAssessmentCheckFailure, KindRunCompleted, KindOther}
}

// RequiresWorkspace reports whether a delivery of this kind can lead to a
// run and therefore must name a workspace
func (k Kind) RequiresWorkspace() bool {
	switch k {
	case KindAssessmentCheckFailure, KindRunCompleted:
		return true
	default:
		return false
	}
}

// Envelope is a parsed notification delivery. It lives for a single request.
type Envelope struct {
	Kind             Kind
	WorkspaceID      string
	WorkspaceName    string
	OrganizationName string
	// Trigger is the notification trigger, e.g. "assessment:drifted"
	Trigger string
	// Message is the human readable notification message
	Message    string
	RunID      string
	RunStatus  string
	RunMessage string
	// NotificationID identifies the delivery across retries. It is empty
	// when the payload carries nothing stable to key on.
	NotificationID string
	// RawBody is kept for signature verification only
	RawBody []byte
}

// MalformedPayloadError reports a body that cannot be parsed or lacks a
// field required to act on it
type MalformedPayloadError struct {
	// Field names the missing field, empty for syntax errors
	Field  string
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed payload: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// payload mirrors both notification payload versions. Version 1 run
// payloads carry workspace fields at the top level and a notifications
// array; version 2 assessment payloads carry trigger at the top level and
// the workspace under details.
type payload struct {
	PayloadKind      string   `json:"payload_kind"`
	Trigger          string   `json:"trigger"`
	Message          string   `json:"message"`
	RunID            string   `json:"run_id"`
	RunStatus        string   `json:"run_status"`
	RunMessage       string   `json:"run_message"`
	WorkspaceID      string   `json:"workspace_id"`
	WorkspaceName    string   `json:"workspace_name"`
	OrganizationName string   `json:"organization_name"`
	Notifications    []entry  `json:"notifications"`
	Details          *details `json:"details"`
}

type entry struct {
	Message      string `json:"message"`
	Trigger      string `json:"trigger"`
	RunStatus    string `json:"run_status"`
	RunUpdatedAt string `json:"run_updated_at"`
}

type details struct {
	WorkspaceID         string            `json:"workspace_id"`
	WorkspaceName       string            `json:"workspace_name"`
	OrganizationName    string            `json:"organization_name"`
	NewAssessmentResult *assessmentResult `json:"new_assessment_result"`
}

type assessmentResult struct {
	ID string `json:"id"`
}
