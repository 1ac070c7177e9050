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
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	gotfe "github.com/hashicorp/go-tfe"
)

// Options configures the Runs API client
type Options struct {
	// Address is the base URL of the Terraform instance, e.g. https://app.terraform.io
	Address string
	// Token is the bearer token sent with every request
	Token string
	// InsecureSkipVerify disables TLS certificate verification
	InsecureSkipVerify bool
	// Timeout bounds each HTTP round trip. Zero means no transport timeout;
	// callers are then expected to bound the context.
	Timeout time.Duration
}

// tfeClient implements the Client interface using go-tfe
type tfeClient struct {
	client *gotfe.Client
}

// NewClient creates a Runs API client. go-tfe contacts the instance's ping
// endpoint while constructing the client, so an unreachable address or a
// broken TLS setup surfaces here rather than on the first notification.
func NewClient(opts Options) (Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in for self-signed instances
	}

	config := &gotfe.Config{
		Address:           opts.Address,
		Token:             opts.Token,
		HTTPClient:        &http.Client{Transport: rejectThrottled{next: transport}, Timeout: opts.Timeout},
		RetryServerErrors: false,
	}

	client, err := gotfe.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create tfe client: %w", err)
	}

	return &tfeClient{client: client}, nil
}

// rejectThrottled turns 429 answers into transport errors. go-tfe retries
// 429 regardless of RetryServerErrors, but leaves transport errors alone.
type rejectThrottled struct {
	next http.RoundTripper
}

func (t rejectThrottled) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("runs API rate limited the request: %s", resp.Status)
	}
	return resp, nil
}

// CreateRun queues a run in the requested workspace
func (c *tfeClient) CreateRun(ctx context.Context, req *RunRequest) (*Run, error) {
	if req == nil || req.WorkspaceID == "" {
		return nil, &APIError{Op: "create run", Err: fmt.Errorf("workspace id is required")}
	}

	options := gotfe.RunCreateOptions{
		Workspace: &gotfe.Workspace{ID: req.WorkspaceID},
		IsDestroy: gotfe.Bool(req.IsDestroy),
		AutoApply: gotfe.Bool(req.AutoApply),
	}
	if req.Message != "" {
		options.Message = gotfe.String(req.Message)
	}

	run, err := c.client.Runs.Create(ctx, options)
	if err != nil {
		return nil, &APIError{Op: "create run", Err: err}
	}

	return convertRun(run), nil
}

// convertRun converts a go-tfe run to our domain model
func convertRun(run *gotfe.Run) *Run {
	if run == nil {
		return nil
	}

	return &Run{
		ID:        run.ID,
		Status:    string(run.Status),
		IsDestroy: run.IsDestroy,
		AutoApply: run.AutoApply,
		Message:   run.Message,
	}
}
