package authapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// loginThrottle remembers recent login failures per client IP and per
// identifier. It is process-local.
type loginThrottle struct {
	mu        sync.Mutex
	failures  map[string][]time.Time
	retention time.Duration

	ipMax    int
	ipWindow time.Duration
	tiers    []lockoutTier
}

// sweepThreshold is the key count above which every key is pruned on write.
const sweepThreshold = 4096

func newLoginThrottle(cfg Config) *loginThrottle {
	tiers := []lockoutTier{
		{Threshold: cfg.LockoutSevereThreshold, Duration: cfg.LockoutSevereDuration},
		{Threshold: cfg.LockoutLongThreshold, Duration: cfg.LockoutLongDuration},
		{Threshold: cfg.LockoutShortThreshold, Duration: cfg.LockoutShortDuration},
	}
	retention := cfg.LoginIPWindow
	for _, t := range tiers {
		if t.Duration > retention {
			retention = t.Duration
		}
	}
	return &loginThrottle{
		failures:  make(map[string][]time.Time),
		retention: retention,
		ipMax:     cfg.LoginIPMax,
		ipWindow:  cfg.LoginIPWindow,
		tiers:     tiers,
	}
}

func ipKey(ip net.IP) string      { return "ip:" + ip.String() }
func identKey(ident string) string { return "id:" + ident }

// check reports whether a login from ip for identifier must be refused.
func (t *loginThrottle) check(ip net.IP, identifier string, now time.Time) (bool, time.Duration) {
	if t == nil {
		return false, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if ip != nil && t.ipMax > 0 {
		if blocked, retry := evaluateWindowThrottle(now, t.recent(ipKey(ip), now), t.ipMax, t.ipWindow); blocked {
			return true, retry
		}
	}
	if identifier != "" {
		return evaluateProgressiveLockout(now, t.recent(identKey(identifier), now), t.tiers)
	}
	return false, 0
}

func (t *loginThrottle) recordFailure(ip net.IP, identifier string, now time.Time) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.failures) > sweepThreshold {
		for k := range t.failures {
			if len(t.recent(k, now)) == 0 {
				delete(t.failures, k)
			}
		}
	}
	if ip != nil {
		k := ipKey(ip)
		t.failures[k] = append(t.recent(k, now), now)
	}
	if identifier != "" {
		k := identKey(identifier)
		t.failures[k] = append(t.recent(k, now), now)
	}
}

// reset forgets identifier failures after a successful login.
func (t *loginThrottle) reset(identifier string) {
	if t == nil || identifier == "" {
		return
	}
	t.mu.Lock()
	delete(t.failures, identKey(identifier))
	t.mu.Unlock()
}

// recent prunes key to the retention window and returns what is left.
// Callers hold t.mu.
func (t *loginThrottle) recent(key string, now time.Time) []time.Time {
	cut := now.Add(-t.retention)
	in := t.failures[key]
	out := in[:0]
	for _, f := range in {
		if f.After(cut) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		delete(t.failures, key)
		return nil
	}
	t.failures[key] = out
	return out
}

// evaluateWindowThrottle blocks once maxFailures failures fall inside window.
// The retry hint is when the oldest of them leaves the window.
func evaluateWindowThrottle(now time.Time, failures []time.Time, maxFailures int, window time.Duration) (bool, time.Duration) {
	if maxFailures <= 0 || window <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	var (
		n      int
		oldest time.Time
	)
	for _, f := range failures {
		if !f.After(cut) {
			continue
		}
		if n == 0 || f.Before(oldest) {
			oldest = f
		}
		n++
	}
	if n < maxFailures {
		return false, 0
	}
	return true, oldest.Add(window).Sub(now)
}

// evaluateProgressiveLockout applies the first tier whose threshold is met.
// Tiers are ordered from most to least severe; the lockout runs from the
// latest failure.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	if len(failures) == 0 {
		return false, 0
	}
	latest := failures[0]
	for _, f := range failures[1:] {
		if f.After(latest) {
			latest = f
		}
	}
	for _, tier := range tiers {
		if tier.Threshold <= 0 || len(failures) < tier.Threshold {
			continue
		}
		if retry := latest.Add(tier.Duration).Sub(now); retry > 0 {
			return true, retry
		}
		return false, 0
	}
	return false, 0
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter / time.Second)
		if retryAfter%time.Second != 0 {
			secs++
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
