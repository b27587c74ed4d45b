// Package addrquota rate limits events per client address range.
package addrquota

import (
	"net"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Quota implements a simple IP-based rate limiter.
// Each set of incoming IP addresses with the same
// low-order byte gets events per second.
// Limiters of idle address ranges expire after a minute and at most
// maxEntries ranges are tracked.
type Quota struct {
	eps   float32 // allowed events per second
	burst int     // maximum events per second (queue)

	mu    sync.Mutex // protects cache
	cache *ttlcache.Cache[string, *rate.Limiter]
}

// NewQuota returns a new Quota.
func NewQuota(eventsPerSecond float32, burst, maxEntries int) *Quota {
	return &Quota{
		eps:   eventsPerSecond,
		burst: burst,
		cache: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](time.Minute),
			ttlcache.WithCapacity[string, *rate.Limiter](uint64(maxEntries)),
		),
	}
}

// Blocked reports whether an event from addr exceeds the quota.
// A nil Quota blocks nothing.
func (q *Quota) Blocked(addr net.Addr) bool {
	if q == nil {
		return false
	}
	key := ipKey(addr)
	if key == "" {
		return false
	}
	q.mu.Lock()
	var limiter *rate.Limiter
	if item := q.cache.Get(key); item != nil {
		limiter = item.Value()
	} else {
		limiter = rate.NewLimiter(rate.Limit(q.eps), q.burst)
		q.cache.Set(key, limiter, ttlcache.DefaultTTL)
	}
	q.mu.Unlock()
	return !limiter.Allow()
}

func ipKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	// Zero out last byte, to cover ranges.
	ip[len(ip)-1] = 0
	return ip.String()
}
