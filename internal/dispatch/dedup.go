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
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/util/cache"
	"k8s.io/utils/clock"

	"github.com/mikelane/driftrelay/internal/notification"
)

// dedupCacheSize caps the number of remembered notifications
const dedupCacheSize = 4096

// Clock is the time source for the dedup window
type Clock interface {
	Now() time.Time
}

// dedupGuard suppresses repeated dispatches of one notification. Concurrent
// deliveries of the same key share a single call; successful results are
// remembered for the window. Failures are never remembered, so a
// redelivery after a failed dispatch is attempted again.
type dedupGuard struct {
	window time.Duration
	recent *cache.LRUExpireCache
	group  singleflight.Group
}

func newDedupGuard(window time.Duration, c Clock) *dedupGuard {
	if c == nil {
		c = clock.RealClock{}
	}
	return &dedupGuard{
		window: window,
		recent: cache.NewLRUExpireCacheWithClock(dedupCacheSize, c),
	}
}

// dedupKey keys on the notification id and the requested operation, so the
// same notification delivered to /apply and /destroy is not conflated
func dedupKey(env *notification.Envelope, op Operation) string {
	return string(op) + "/" + env.WorkspaceID + "/" + env.NotificationID
}

func (g *dedupGuard) do(key string, send func() (*Result, error)) (*Result, error) {
	if res, ok := g.lookup(key); ok {
		return res, nil
	}

	// Only the caller whose function runs owns the call; the rest joined it
	executed := false
	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		executed = true
		if res, ok := g.lookup(key); ok {
			return res, nil
		}
		res, err := send()
		if err != nil {
			return nil, err
		}
		g.recent.Add(key, *res, g.window)
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	res := *v.(*Result)
	if !executed {
		res.Duplicate = true
	}
	return &res, nil
}

// lookup returns a copy of a remembered result marked as a duplicate
func (g *dedupGuard) lookup(key string) (*Result, bool) {
	v, ok := g.recent.Get(key)
	if !ok {
		return nil, false
	}
	res := v.(Result)
	res.Duplicate = true
	return &res, true
}
