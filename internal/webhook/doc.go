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

// Package webhook provides the HTTP surface of driftrelay.
//
// The server receives Terraform Cloud / Enterprise notification webhooks and
// turns each qualifying notification into exactly one remediation run.
//
// Endpoints:
//   - GET /health: liveness, always {"status":"healthy"}
//   - POST /webhook/apply: queue an apply run when drift is reported
//   - POST /webhook/destroy: queue a destroy run when drift is reported
//   - POST /webhook/conditional: let the router pick the operation
//
// Webhook Security:
//
// When TFE_NOTIFICATION_TOKEN is set, every request must carry an
// X-TFE-Notification-Signature header holding the hex-encoded HMAC-SHA512 of
// the raw body. Requests with a missing or wrong signature receive HTTP 401.
// Without a token all requests are accepted and a warning is logged once at
// startup.
//
// Request Lifecycle:
//
// Each request moves through an explicit State: received, then verified or
// rejected, then classified or bad_request, then one of skipped, throttled,
// dispatched or dispatch_failed, and finally responded. The terminal state
// determines the HTTP status.
//
// Verification probes are answered with 200 on every endpoint and never
// create a run. A failed or timed out dispatch is answered with 502 so the
// notification service redelivers.
//
// Rate Limiting:
//
// With TFE_RATE_LIMIT set, dispatches are limited per workspace using a token
// bucket. Requests over the limit receive HTTP 429.
package webhook
