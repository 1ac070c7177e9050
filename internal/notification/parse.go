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
	"bytes"
	"encoding/json"
	"strings"
)

// Triggers sent by the notification service
const (
	TriggerVerification           = "verification"
	TriggerAssessmentDrifted      = "assessment:drifted"
	TriggerAssessmentCheckFailure = "assessment:check_failure"
	TriggerRunCompleted           = "run:completed"
	TriggerRunErrored             = "run:errored"
)

// Parse decodes and classifies a notification body. It performs no I/O.
//
// A syntactically invalid body, or one that classifies as a kind that can
// produce a run but carries no workspace id, yields a *MalformedPayloadError.
func Parse(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &MalformedPayloadError{Reason: "no payload provided"}
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, &MalformedPayloadError{Reason: "invalid JSON", Err: err}
	}

	env := &Envelope{
		Kind:             classify(&p),
		WorkspaceID:      p.WorkspaceID,
		WorkspaceName:    p.WorkspaceName,
		OrganizationName: p.OrganizationName,
		Trigger:          p.Trigger,
		Message:          p.Message,
		RunID:            p.RunID,
		RunStatus:        p.RunStatus,
		RunMessage:       p.RunMessage,
		RawBody:          body,
	}

	// Assessment payloads nest the workspace under details
	if env.WorkspaceID == "" && p.Details != nil {
		env.WorkspaceID = p.Details.WorkspaceID
		env.WorkspaceName = p.Details.WorkspaceName
		env.OrganizationName = p.Details.OrganizationName
	}

	if len(p.Notifications) > 0 {
		first := p.Notifications[0]
		if env.Trigger == "" {
			env.Trigger = first.Trigger
		}
		if env.Message == "" {
			env.Message = first.Message
		}
		if env.RunStatus == "" {
			env.RunStatus = first.RunStatus
		}
	}

	env.NotificationID = notificationID(&p, env)

	if env.Kind.RequiresWorkspace() && env.WorkspaceID == "" {
		return nil, &MalformedPayloadError{
			Field:  "workspace_id",
			Reason: "workspace_id not found in notification payload",
		}
	}

	return env, nil
}

// classify applies the classification rules in order; the first match wins
func classify(p *payload) Kind {
	triggers := make([]string, 0, len(p.Notifications)+1)
	if p.Trigger != "" {
		triggers = append(triggers, p.Trigger)
	}
	for _, n := range p.Notifications {
		triggers = append(triggers, n.Trigger)
	}
	kind := strings.ToLower(strings.TrimSpace(p.PayloadKind))

	switch {
	case kind == string(KindVerification) || hasTrigger(triggers, TriggerVerification):
		return KindVerification
	case kind == string(KindAssessmentCheckFailure) || kind == "drift" ||
		hasTrigger(triggers, TriggerAssessmentDrifted, TriggerAssessmentCheckFailure):
		return KindAssessmentCheckFailure
	case kind == string(KindRunCompleted) || hasTrigger(triggers, TriggerRunCompleted, TriggerRunErrored):
		return KindRunCompleted
	default:
		return KindOther
	}
}

func hasTrigger(triggers []string, want ...string) bool {
	for _, t := range triggers {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(t), w) {
				return true
			}
		}
	}
	return false
}

// notificationID derives a key that stays the same across redeliveries of
// one notification: the assessment result id for assessment payloads, or
// run id, trigger and update time for run payloads
func notificationID(p *payload, env *Envelope) string {
	if p.Details != nil && p.Details.NewAssessmentResult != nil && p.Details.NewAssessmentResult.ID != "" {
		return p.Details.NewAssessmentResult.ID
	}
	if env.RunID == "" {
		return ""
	}
	var updatedAt string
	if len(p.Notifications) > 0 {
		updatedAt = p.Notifications[0].RunUpdatedAt
	}
	return strings.Join([]string{env.RunID, env.Trigger, updatedAt}, ":")
}
