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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-workspace rate limiting of dispatched runs
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter allows limit dispatches per window for each workspace,
// refilling evenly across the window. The whole budget is available as a
// burst.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		now:      time.Now,
	}
}

// Allow checks if a dispatch for the given workspace should be allowed.
// A nil limiter allows everything.
func (rl *RateLimiter) Allow(workspace string) bool {
	if rl == nil {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, exists := rl.limiters[workspace]
	if !exists {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[workspace] = l
	}
	return l.AllowN(rl.now(), 1)
}

// Prune drops buckets that have refilled completely by now. A dropped
// workspace starts with a full bucket again, so no budget is lost.
func (rl *RateLimiter) Prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for workspace, l := range rl.limiters {
		if l.TokensAt(now) >= float64(rl.burst) {
			delete(rl.limiters, workspace)
			removed++
		}
	}
	return removed
}
