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

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/driftrelay/internal/cleanup"
	"github.com/mikelane/driftrelay/internal/config"
	"github.com/mikelane/driftrelay/internal/dispatch"
	"github.com/mikelane/driftrelay/internal/notification"
	"github.com/mikelane/driftrelay/internal/router"
)

const (
	// maxBodyBytes caps the notification body read into memory
	maxBodyBytes = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// entryPoint identifies which webhook URL received a request
type entryPoint string

const (
	entryApply       entryPoint = "apply"
	entryDestroy     entryPoint = "destroy"
	entryConditional entryPoint = "conditional"
)

// Dispatcher creates remediation runs. Recent reports a run already created
// for the same notification, so a redelivery is answered without spending
// rate limit budget.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *notification.Envelope, op dispatch.Operation) (*dispatch.Result, error)
	Recent(env *notification.Envelope, op dispatch.Operation) (*dispatch.Result, bool)
}

// Server handles notification webhook requests
type Server struct {
	addr          string
	port          int
	webhookSecret string
	dispatcher    Dispatcher
	router        *router.Router
	rateLimiter   *RateLimiter
	server        *http.Server
}

// NewServer creates a new webhook server listening on addr and cfg.Port.
// A per-workspace rate limiter is installed when cfg.RateLimit is positive.
func NewServer(addr string, cfg *config.Config, dispatcher Dispatcher, rt *router.Router) *Server {
	s := &Server{
		addr:          addr,
		port:          cfg.Port,
		webhookSecret: cfg.NotificationToken,
		dispatcher:    dispatcher,
		router:        rt,
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit, time.Minute)
	}
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/webhook", func(r chi.Router) {
		r.Post("/apply", s.handleApply)
		r.Post("/destroy", s.handleDestroy)
		r.Post("/conditional", s.handleConditional)
	})
	return r
}

// Start starts the webhook server and blocks until ctx is done
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromContext(ctx)

	if s.webhookSecret == "" {
		logger.Info("TFE_NOTIFICATION_TOKEN is not set, webhook signatures will not be verified")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.addr, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return log.IntoContext(context.Background(), logger)
		},
	}

	if s.rateLimiter != nil {
		go func() {
			_ = cleanup.NewScheduler(s.rateLimiter, time.Minute).Start(ctx)
		}()
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting webhook server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(log.IntoContext(shutdownCtx, logger))
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server, draining in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.FromContext(ctx).Info("Shutting down webhook server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	s.handleNotification(w, r, entryApply)
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	s.handleNotification(w, r, entryDestroy)
}

func (s *Server) handleConditional(w http.ResponseWriter, r *http.Request) {
	s.handleNotification(w, r, entryConditional)
}

type errorResponse struct {
	Error string `json:"error"`
}

type verificationResponse struct {
	Status  string `json:"status"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type skippedResponse struct {
	Status  string            `json:"status"`
	Kind    notification.Kind `json:"kind"`
	Message string            `json:"message"`
}

type dispatchedResponse struct {
	Status      string             `json:"status"`
	RunID       string             `json:"run_id"`
	Action      dispatch.Operation `json:"action"`
	WorkspaceID string             `json:"workspace_id"`
	Message     string             `json:"message"`
	Duplicate   bool               `json:"duplicate"`
}

// handleNotification verifies, classifies and acts on one notification.
// Every request ends in exactly one terminal state and one response.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request, entry entryPoint) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithValues("entryPoint", entry)
	ex := &exchange{state: StateReceived}

	respond := func(to State, body any) {
		ex.advance(to)
		status := ex.state.StatusCode()
		writeJSON(w, status, body)
		logger.V(1).Info("Notification handled", "outcome", ex.state.String(), "status", status)
		ex.advance(StateResponded)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		respond(StateBadRequest, errorResponse{Error: "failed to read request body: " + err.Error()})
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if err := VerifySignature(body, signature, s.webhookSecret); err != nil {
		logger.Info("Rejected webhook", "reason", err.Error())
		respond(StateRejected, errorResponse{Error: err.Error()})
		return
	}
	ex.advance(StateVerified)

	env, err := notification.Parse(body)
	if err != nil {
		logger.Info("Malformed notification", "reason", err.Error())
		respond(StateBadRequest, errorResponse{Error: err.Error()})
		return
	}
	ex.advance(StateClassified)
	logger = logger.WithValues("kind", env.Kind, "workspaceID", env.WorkspaceID)
	ctx = log.IntoContext(ctx, logger)

	if env.Kind == notification.KindVerification {
		logger.Info("Verification notification received")
		respond(StateSkipped, verificationResponse{
			Status:  "success",
			Type:    "verification",
			Message: "Webhook verified successfully",
		})
		return
	}

	op, workspaceID, reason, act := s.decide(entry, env)
	if !act {
		logger.Info("No action for notification", "reason", reason)
		respond(StateSkipped, skippedResponse{Status: "skipped", Kind: env.Kind, Message: reason})
		return
	}

	target := *env
	target.WorkspaceID = workspaceID
	if res, ok := s.dispatcher.Recent(&target, op); ok {
		logger.Info("Notification already dispatched", "operation", res.Operation, "runID", res.RunID)
		respond(StateDispatched, newDispatchedResponse(res))
		return
	}

	if !s.rateLimiter.Allow(workspaceID) {
		logger.Info("Rate limit exceeded")
		respond(StateThrottled, errorResponse{Error: "rate limit exceeded for workspace " + workspaceID})
		return
	}

	res, err := s.dispatcher.Dispatch(ctx, &target, op)
	if err != nil {
		var dispatchErr *dispatch.Error
		if errors.As(err, &dispatchErr) && dispatchErr.Timeout() {
			logger.Error(err, "Dispatch timed out", "operation", op)
		} else {
			logger.Error(err, "Dispatch failed", "operation", op)
		}
		respond(StateDispatchFailed, errorResponse{Error: "dispatch failed: " + err.Error()})
		return
	}

	logger.Info("Run created", "operation", res.Operation, "runID", res.RunID, "duplicate", res.Duplicate)
	respond(StateDispatched, newDispatchedResponse(res))
}

func newDispatchedResponse(res *dispatch.Result) dispatchedResponse {
	return dispatchedResponse{
		Status:      "success",
		RunID:       res.RunID,
		Action:      res.Operation,
		WorkspaceID: res.WorkspaceID,
		Message:     runCreatedMessage(res.Operation),
		Duplicate:   res.Duplicate,
	}
}

// decide picks the operation for a classified, non-verification envelope.
// Fixed entry points act on drift only; the conditional entry point asks
// the router.
func (s *Server) decide(entry entryPoint, env *notification.Envelope) (dispatch.Operation, string, string, bool) {
	switch entry {
	case entryConditional:
		d := s.router.Route(env)
		return d.Operation, d.WorkspaceID, d.Reason, d.Action
	case entryApply, entryDestroy:
		if env.Kind != notification.KindAssessmentCheckFailure {
			return "", "", fmt.Sprintf("no action for %s notifications", env.Kind), false
		}
		return dispatch.Operation(entry), env.WorkspaceID, "drift detected", true
	default:
		return "", "", fmt.Sprintf("unknown entry point %q", entry), false
	}
}

func runCreatedMessage(op dispatch.Operation) string {
	switch op {
	case dispatch.OperationDestroy:
		return "Destroy run created successfully"
	default:
		return "Apply run created successfully"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
