/*
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

package cleanup

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Pruner drops state that is no longer needed at the given time and
// reports how many entries it removed
type Pruner interface {
	Prune(now time.Time) int
}

// Scheduler periodically prunes idle in-memory state so that long running
// relays do not grow without bound.
type Scheduler struct {
	target   Pruner
	interval time.Duration
	now      func() time.Time
}

// NewScheduler creates a scheduler that prunes target every interval.
//
// Parameters:
//   - target: state to prune, e.g. the per-workspace rate limiter
//   - interval: duration between passes (e.g., time.Minute)
func NewScheduler(target Pruner, interval time.Duration) *Scheduler {
	return &Scheduler{
		target:   target,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs prune passes until the context is canceled. It always
// returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

// prune performs a single pass
func (s *Scheduler) prune(ctx context.Context) {
	if removed := s.target.Prune(s.now()); removed > 0 {
		log.FromContext(ctx).V(1).Info("Pruned idle entries", "removed", removed)
	}
}
