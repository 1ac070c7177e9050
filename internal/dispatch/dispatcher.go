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
	"context"
	"errors"
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/driftrelay/internal/config"
	"github.com/mikelane/driftrelay/internal/notification"
	"github.com/mikelane/driftrelay/internal/tfe"
)

// Dispatcher turns a classified notification into exactly one Runs API call
type Dispatcher struct {
	client    tfe.Client
	autoApply bool
	timeout   time.Duration
	dedup     *dedupGuard
}

// Option customises a Dispatcher
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	clock Clock
}

// WithClock sets the clock used to expire remembered notifications
func WithClock(c Clock) Option {
	return func(o *dispatcherOptions) {
		o.clock = c
	}
}

// NewDispatcher creates a dispatcher using the auto-apply flag, timeout and
// dedup window from cfg
func NewDispatcher(client tfe.Client, cfg *config.Config, opts ...Option) *Dispatcher {
	options := &dispatcherOptions{}
	for _, opt := range opts {
		opt(options)
	}

	timeout := cfg.DispatchTimeout
	if timeout <= 0 {
		timeout = config.DefaultDispatchTimeout
	}

	d := &Dispatcher{
		client:    client,
		autoApply: cfg.AutoApply,
		timeout:   timeout,
	}
	if cfg.DedupWindow > 0 {
		d.dedup = newDedupGuard(cfg.DedupWindow, options.clock)
	}
	return d
}

// Dispatch creates one run of the given operation for the envelope's
// workspace. Failures are never retried here; they come back as *Error.
//
// Once the API call has started it is not cancelled with ctx: it either
// completes or runs into the dispatch timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, env *notification.Envelope, op Operation) (*Result, error) {
	if !op.Valid() {
		return nil, &Error{Operation: op, Err: fmt.Errorf("unknown operation %q", op)}
	}
	if env == nil || env.WorkspaceID == "" {
		return nil, &Error{Operation: op, Err: errors.New("workspace id is required")}
	}

	req := &RemediationRequest{
		WorkspaceID: env.WorkspaceID,
		Operation:   op,
		AutoApply:   d.autoApply,
		Message:     runMessage(env, op),
	}

	if d.dedup == nil || env.NotificationID == "" {
		return d.send(ctx, req)
	}
	return d.dedup.do(dedupKey(env, op), func() (*Result, error) {
		return d.send(ctx, req)
	})
}

// Recent returns the remembered result for a notification already
// dispatched within the dedup window, marked as a duplicate
func (d *Dispatcher) Recent(env *notification.Envelope, op Operation) (*Result, bool) {
	if d.dedup == nil || env == nil || env.NotificationID == "" {
		return nil, false
	}
	return d.dedup.lookup(dedupKey(env, op))
}

// send performs the single outbound call for req
func (d *Dispatcher) send(ctx context.Context, req *RemediationRequest) (*Result, error) {
	logger := log.FromContext(ctx).WithValues("workspace", req.WorkspaceID, "operation", req.Operation)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	logger.Info("Creating run", "autoApply", req.AutoApply)
	logger.V(1).Info("Run request", "message", req.Message)

	start := time.Now()
	run, err := d.client.CreateRun(callCtx, &tfe.RunRequest{
		WorkspaceID: req.WorkspaceID,
		IsDestroy:   req.Operation == OperationDestroy,
		AutoApply:   req.AutoApply,
		Message:     req.Message,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, d.timeout, err)
		}
		return nil, &Error{Operation: req.Operation, WorkspaceID: req.WorkspaceID, Err: err}
	}
	if run == nil || run.ID == "" {
		return nil, &Error{Operation: req.Operation, WorkspaceID: req.WorkspaceID, Err: errors.New("runs API returned no run id")}
	}

	logger.Info("Created run", "runID", run.ID, "duration", time.Since(start).String())
	return &Result{
		RunID:       run.ID,
		Operation:   req.Operation,
		WorkspaceID: req.WorkspaceID,
	}, nil
}

// runMessage describes why the run was queued: the run that prompted it for
// run notifications, otherwise the notification's trigger
func runMessage(env *notification.Envelope, op Operation) string {
	switch {
	case env.RunID != "":
		msg := fmt.Sprintf("Triggered by notification from run %s (status: %s)", env.RunID, env.RunStatus)
		if env.RunMessage != "" {
			msg += " - Previous run message: " + env.RunMessage
		}
		return msg
	case env.Trigger != "":
		return fmt.Sprintf("Triggered by %s: %s", env.Trigger, env.Message)
	default:
		return fmt.Sprintf("Triggered by notification relay - %s", op)
	}
}
