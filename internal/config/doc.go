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

// Package config loads the relay's process-wide configuration.
//
// Configuration is read once at startup from the environment, optionally
// layered over a YAML file whose keys are the lower-cased variable names:
//
//	tfe_hostname: tfe.example.com
//	tfe_auto_apply: true
//	tfe_dedup_window: 10m
//
// Environment variables always win over the file. TFE_TOKEN is required; its
// absence is reported as a *ConfigurationError and the relay refuses to start.
//
// Recognised variables:
//   - TFE_TOKEN: Terraform API token (required)
//   - TFE_HOSTNAME: HCP Terraform or Terraform Enterprise host (default app.terraform.io)
//   - TFE_SSL_SKIP_VERIFY: skip TLS verification for self-signed instances
//   - TFE_NOTIFICATION_TOKEN: HMAC key for X-TFE-Notification-Signature
//   - TFE_AUTO_APPLY: create runs with auto-apply set
//   - PORT: listen port (default 5000)
//   - DEBUG: verbose logging
//   - TFE_DISPATCH_TIMEOUT: bound on each Runs API call (default 30s)
//   - TFE_DEDUP_WINDOW: remember dispatched notifications for this long (default off)
//   - TFE_RATE_LIMIT: runs per workspace per minute (default off)
//   - TFE_CONDITIONAL_DESTROY: let /webhook/conditional destroy on teardown runs
//   - TFE_CONDITIONAL_RETRY_ERRORED: let /webhook/conditional re-apply errored runs
package config
