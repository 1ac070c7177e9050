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

// Package notification parses and classifies Terraform notification payloads.
//
// Two payload shapes are understood. Run notifications (payload version 1)
// carry the workspace at the top level and a notifications array:
//
//	{
//	  "payload_version": 1,
//	  "run_id": "run-abc",
//	  "workspace_id": "ws-123",
//	  "notifications": [{"trigger": "run:completed", "run_status": "applied"}]
//	}
//
// Assessment notifications (payload version 2) carry the trigger at the top
// level and the workspace under details:
//
//	{
//	  "payload_version": "2",
//	  "trigger": "assessment:drifted",
//	  "details": {"workspace_id": "ws-123", "new_assessment_result": {"id": "asmtres-1"}}
//	}
//
// The verification probe sent when a notification configuration is saved is a
// run notification whose trigger is "verification". A bare
// {"payload_kind": "..."} document is also accepted, naming the kind directly.
//
// Parse is a pure function of its input and is safe for concurrent use.
package notification
