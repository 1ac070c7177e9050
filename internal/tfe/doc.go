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

// Package tfe provides the Terraform Runs API integration for the relay.
//
// The package wraps github.com/hashicorp/go-tfe behind the small Client
// interface the dispatcher depends on, so tests can substitute a fake.
//
// Authentication:
//
// Requests carry the configured API token as a bearer token. A user or team
// token with permission to queue runs on the target workspaces is required.
//
// Example usage:
//
//	client, err := tfe.NewClient(tfe.Options{
//	    Address: "https://app.terraform.io",
//	    Token:   token,
//	    Timeout: 30 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := client.CreateRun(ctx, &tfe.RunRequest{
//	    WorkspaceID: "ws-123",
//	    Message:     "Triggered by assessment:drifted: Drift Detected",
//	})
//
// Retries:
//
// Server errors are not retried. A failed call is reported to the caller,
// which answers the webhook with a 5xx so the notification service delivers
// it again. go-tfe still backs off on 429 rate limit answers; the caller's
// context deadline bounds that wait.
package tfe
