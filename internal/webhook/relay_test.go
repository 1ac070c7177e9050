/*
MIT License

Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mikelane/driftrelay/internal/config"
	"github.com/mikelane/driftrelay/internal/dispatch"
	"github.com/mikelane/driftrelay/internal/router"
	"github.com/mikelane/driftrelay/internal/tfe"
	"github.com/mikelane/driftrelay/internal/webhook"
)

// runsAPI records every CreateRun call and hands out sequential run ids
type runsAPI struct {
	mu    sync.Mutex
	calls []tfe.RunRequest
	// hang makes the next calls block until their context is done
	hang int
}

func (r *runsAPI) CreateRun(ctx context.Context, req *tfe.RunRequest) (*tfe.Run, error) {
	r.mu.Lock()
	r.calls = append(r.calls, *req)
	n := len(r.calls)
	hang := r.hang > 0
	if hang {
		r.hang--
	}
	r.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, &tfe.APIError{Op: "create run", Err: ctx.Err()}
	}
	return &tfe.Run{ID: fmt.Sprintf("run-%04d", n), IsDestroy: req.IsDestroy, AutoApply: req.AutoApply}, nil
}

func (r *runsAPI) Calls() []tfe.RunRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tfe.RunRequest(nil), r.calls...)
}

type response struct {
	code int
	body map[string]any
}

var _ = Describe("Notification relay", func() {
	const (
		secret = "relay-secret"
		drift  = `{"payload_version":2,"trigger":"assessment:drifted","message":"Drift detected",` +
			`"details":{"workspace_id":"ws-123","workspace_name":"prod","organization_name":"acme",` +
			`"new_assessment_result":{"id":"asmtres-77"}}}`
		verification = `{"payload_version":1,"notifications":[{"trigger":"verification"}]}`
	)

	var (
		cfg  *config.Config
		api  *runsAPI
		srv  *httptest.Server
		send func(path, body, signature string) response
	)

	sign := func(body string) string {
		return webhook.Sign([]byte(body), secret)
	}

	start := func() {
		d := dispatch.NewDispatcher(api, cfg)
		s := webhook.NewServer("127.0.0.1", cfg, d, router.New(cfg.Policy))
		srv = httptest.NewServer(s.Handler())
	}

	BeforeEach(func() {
		cfg = config.Default()
		cfg.Token = "test-token"
		cfg.NotificationToken = secret
		cfg.DispatchTimeout = 200 * time.Millisecond
		api = &runsAPI{}

		send = func(path, body, signature string) response {
			req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewBufferString(body))
			Expect(err).NotTo(HaveOccurred())
			if signature != "" {
				req.Header.Set(webhook.SignatureHeader, signature)
			}
			resp, err := srv.Client().Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			out := response{code: resp.StatusCode}
			Expect(json.NewDecoder(resp.Body).Decode(&out.body)).To(Succeed())
			return out
		}
	})

	AfterEach(func() {
		if srv != nil {
			srv.Close()
		}
	})

	Context("with a notification secret", func() {
		BeforeEach(start)

		DescribeTable("answers verification on every entry point without a run",
			func(path, body string) {
				resp := send(path, body, sign(body))

				Expect(resp.code).To(Equal(http.StatusOK))
				Expect(resp.body).To(HaveKeyWithValue("type", "verification"))
				Expect(resp.body).To(HaveKeyWithValue("message", "Webhook verified successfully"))
				Expect(api.Calls()).To(BeEmpty())
			},
			Entry("apply", "/webhook/apply", verification),
			Entry("destroy", "/webhook/destroy", verification),
			Entry("conditional", "/webhook/conditional", verification),
			Entry("apply with payload_kind", "/webhook/apply", `{"payload_kind":"verification"}`),
		)

		It("rejects a bad signature without calling the Runs API", func() {
			resp := send("/webhook/apply", drift, sign(drift+" "))

			Expect(resp.code).To(Equal(http.StatusUnauthorized))
			Expect(resp.body["error"]).To(HavePrefix("Unauthorized: "))
			Expect(api.Calls()).To(BeEmpty())
		})

		It("creates exactly one apply run for drift on /webhook/apply", func() {
			resp := send("/webhook/apply", drift, sign(drift))

			Expect(resp.code).To(Equal(http.StatusOK))
			Expect(resp.body).To(HaveKeyWithValue("action", "apply"))
			Expect(resp.body).To(HaveKeyWithValue("workspace_id", "ws-123"))
			Expect(api.Calls()).To(HaveLen(1))
			Expect(api.Calls()[0].WorkspaceID).To(Equal("ws-123"))
			Expect(api.Calls()[0].IsDestroy).To(BeFalse())
		})

		It("creates exactly one destroy run for drift on /webhook/destroy", func() {
			resp := send("/webhook/destroy", drift, sign(drift))

			Expect(resp.code).To(Equal(http.StatusOK))
			Expect(resp.body).To(HaveKeyWithValue("action", "destroy"))
			Expect(api.Calls()).To(HaveLen(1))
			Expect(api.Calls()[0].IsDestroy).To(BeTrue())
		})

		It("answers 400 and makes no call when the workspace id is missing", func() {
			body := `{"payload_version":2,"trigger":"assessment:drifted","details":{"workspace_name":"prod"}}`

			resp := send("/webhook/apply", body, sign(body))

			Expect(resp.code).To(Equal(http.StatusBadRequest))
			Expect(resp.body["error"]).To(ContainSubstring("workspace_id"))
			Expect(api.Calls()).To(BeEmpty())
		})

		It("returns the run id for conditional drift on ws-123", func() {
			resp := send("/webhook/conditional", drift, sign(drift))

			Expect(resp.code).To(Equal(http.StatusOK))
			Expect(resp.body).To(HaveKeyWithValue("run_id", "run-0001"))
			Expect(resp.body).To(HaveKeyWithValue("status", "success"))
			Expect(api.Calls()).To(HaveLen(1))
			Expect(api.Calls()[0].WorkspaceID).To(Equal("ws-123"))
		})

		It("dispatches a byte-identical redelivery a second time", func() {
			first := send("/webhook/apply", drift, sign(drift))
			second := send("/webhook/apply", drift, sign(drift))

			Expect(first.code).To(Equal(http.StatusOK))
			Expect(second.code).To(Equal(http.StatusOK))
			Expect(first.body["action"]).To(Equal(second.body["action"]))
			Expect(second.body).To(HaveKeyWithValue("duplicate", false))
			Expect(api.Calls()).To(HaveLen(2))
		})

		It("answers 502 on a timed out call and processes the redelivery afresh", func() {
			api.hang = 1

			failed := send("/webhook/apply", drift, sign(drift))
			Expect(failed.code).To(Equal(http.StatusBadGateway))
			Expect(failed.body["error"]).To(HavePrefix("dispatch failed: "))

			retried := send("/webhook/apply", drift, sign(drift))
			Expect(retried.code).To(Equal(http.StatusOK))
			Expect(retried.body).To(HaveKeyWithValue("run_id", "run-0002"))
			Expect(api.Calls()).To(HaveLen(2))
		})
	})

	Context("without a notification secret", func() {
		BeforeEach(func() {
			cfg.NotificationToken = ""
			start()
		})

		It("accepts unsigned and wrongly signed requests", func() {
			Expect(send("/webhook/apply", drift, "").code).To(Equal(http.StatusOK))
			Expect(send("/webhook/apply", drift, "deadbeef").code).To(Equal(http.StatusOK))
			Expect(api.Calls()).To(HaveLen(2))
		})
	})

	Context("with a dedup window", func() {
		BeforeEach(func() {
			cfg.DedupWindow = time.Minute
			start()
		})

		It("returns the earlier run for a redelivery without calling the Runs API", func() {
			first := send("/webhook/apply", drift, sign(drift))
			second := send("/webhook/apply", drift, sign(drift))

			Expect(second.code).To(Equal(http.StatusOK))
			Expect(second.body["run_id"]).To(Equal(first.body["run_id"]))
			Expect(second.body).To(HaveKeyWithValue("duplicate", true))
			Expect(api.Calls()).To(HaveLen(1))
		})

		It("still treats apply and destroy of one notification separately", func() {
			send("/webhook/apply", drift, sign(drift))
			send("/webhook/destroy", drift, sign(drift))

			Expect(api.Calls()).To(HaveLen(2))
		})
	})

	Context("with opt-in router rules", func() {
		BeforeEach(func() {
			cfg.Policy = config.Policy{DestroyOnTeardown: true, RetryErrored: true}
			start()
		})

		It("destroys after a teardown run on /webhook/conditional", func() {
			body := `{"payload_version":1,"run_id":"run-x","run_message":"Teardown env","workspace_id":"ws-5",` +
				`"notifications":[{"trigger":"run:completed","run_status":"applied","run_updated_at":"2025-01-01T00:00:00Z"}]}`

			resp := send("/webhook/conditional", body, sign(body))

			Expect(resp.code).To(Equal(http.StatusOK))
			Expect(resp.body).To(HaveKeyWithValue("action", "destroy"))
			Expect(api.Calls()).To(HaveLen(1))
			Expect(api.Calls()[0].Message).To(ContainSubstring("run-x"))
		})

		It("re-applies after an errored run on /webhook/conditional", func() {
			body := `{"payload_version":1,"run_id":"run-y","workspace_id":"ws-6",` +
				`"notifications":[{"trigger":"run:errored","run_status":"errored"}]}`

			resp := send("/webhook/conditional", body, sign(body))

			Expect(resp.code).To(Equal(http.StatusOK))
			Expect(resp.body).To(HaveKeyWithValue("action", "apply"))
			Expect(api.Calls()).To(HaveLen(1))
		})
	})

	Context("with a rate limit", func() {
		BeforeEach(func() {
			cfg.RateLimit = 1
			start()
		})

		It("throttles the second dispatch for the same workspace", func() {
			Expect(send("/webhook/apply", drift, sign(drift)).code).To(Equal(http.StatusOK))

			resp := send("/webhook/apply", drift, sign(drift))
			Expect(resp.code).To(Equal(http.StatusTooManyRequests))
			Expect(resp.body["error"]).To(ContainSubstring("ws-123"))
			Expect(api.Calls()).To(HaveLen(1))
		})
	})

	Context("with a rate limit and a dedup window", func() {
		BeforeEach(func() {
			cfg.RateLimit = 1
			cfg.DedupWindow = time.Minute
			start()
		})

		It("answers a redelivery with the earlier run once the bucket is empty", func() {
			first := send("/webhook/apply", drift, sign(drift))
			Expect(first.code).To(Equal(http.StatusOK))

			second := send("/webhook/apply", drift, sign(drift))
			Expect(second.code).To(Equal(http.StatusOK))
			Expect(second.body).To(HaveKeyWithValue("duplicate", true))
			Expect(second.body["run_id"]).To(Equal(first.body["run_id"]))
			Expect(api.Calls()).To(HaveLen(1))
		})

		It("still throttles a different operation for the same workspace", func() {
			Expect(send("/webhook/apply", drift, sign(drift)).code).To(Equal(http.StatusOK))

			resp := send("/webhook/destroy", drift, sign(drift))
			Expect(resp.code).To(Equal(http.StatusTooManyRequests))
			Expect(api.Calls()).To(HaveLen(1))
		})
	})
})
