// Package netguard enforces outbound network trust: per-host endpoint
// policies, a tracker blocklist, and a per-host circuit breaker. Nothing
// leaves the process without passing Decide, and no payload leaves without
// passing the redactor.
package netguard

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// tripThreshold is the failure count at which a host's circuit opens.
	tripThreshold = 5
	// coolDown is how long an open circuit blocks traffic to its host.
	coolDown = 300 * time.Second
)

// EndpointPolicy describes what traffic a single host may receive.
// The host key is always lowercase-normalized so case cannot bypass policy.
type EndpointPolicy struct {
	Host                string   `yaml:"host"`
	RequiredPurpose     string   `yaml:"required_purpose"`
	AllowedMethods      []string `yaml:"allowed_methods"`
	AllowedPathPrefixes []string `yaml:"allowed_path_prefixes"`
	AllowRedirects      bool     `yaml:"allow_redirects"`
	RequiresTrustedCert bool     `yaml:"requires_trusted_certificate"`
	PinnedKeyHashes     []string `yaml:"pinned_key_hashes"`
	MaxResponseBytes    int64    `yaml:"max_response_bytes"`
	TimeoutSeconds      int      `yaml:"timeout_seconds"`
}

// Decision is the outcome of an outbound trust check. When allowed, the
// transport-facing fields carry the resolved policy constraints the caller
// must honor.
type Decision struct {
	Allowed          bool
	Reason           string
	Host             string
	AllowRedirects   bool
	MaxResponseBytes int64
	Timeout          time.Duration
	PinnedKeyHashes  []string
}

// circuitStatus tracks failures for one host. Created on first failure,
// cleared on success or cool-down expiry.
type circuitStatus struct {
	failureCount  int
	lastFailureAt time.Time
	openUntil     time.Time // zero when closed
}

// defaultTrackerBlocklist is matched by substring against the host.
var defaultTrackerBlocklist = []string{
	"doubleclick.net",
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.com/tr",
	"connect.facebook.net",
	"segment.io",
	"mixpanel.com",
	"amplitude.com",
	"scorecardresearch.com",
	"hotjar.com",
	"adservice.",
}

// Options configures a Guard.
type Options struct {
	// Policies are installed keyed by lowercase host.
	Policies []EndpointPolicy
	// RequirePolicy blocks hosts that have no endpoint policy instead of
	// implicitly allowing them.
	RequirePolicy bool
	// ExtraTrackers extends the built-in tracker blocklist.
	ExtraTrackers []string
	// OnCircuitTripped fires when a failure report opens a host's circuit.
	// Called outside the guard's lock.
	OnCircuitTripped func(host string, failures int)
	// OnCircuitClosed fires when an open circuit closes again, either by a
	// reported success or by the cool-down elapsing. Called outside the lock.
	OnCircuitClosed func(host string)
}

// Guard owns the policy table and circuit status table. All mutation is
// serialized through its mutex; callers never touch the maps directly.
type Guard struct {
	mu            sync.Mutex
	policies      map[string]EndpointPolicy
	circuits      map[string]*circuitStatus
	trackers      []string
	requirePolicy bool
	onTripped     func(host string, failures int)
	onClosed      func(host string)
	now           func() time.Time
}

// NewGuard creates a Guard with the given policies installed.
func NewGuard(opts Options) *Guard {
	g := &Guard{
		policies:      make(map[string]EndpointPolicy, len(opts.Policies)),
		circuits:      make(map[string]*circuitStatus),
		trackers:      append(append([]string{}, defaultTrackerBlocklist...), opts.ExtraTrackers...),
		requirePolicy: opts.RequirePolicy,
		onTripped:     opts.OnCircuitTripped,
		onClosed:      opts.OnCircuitClosed,
		now:           time.Now,
	}
	for _, p := range opts.Policies {
		g.SetPolicy(p)
	}
	return g
}

// SetPolicy installs or replaces the policy for a host.
func (g *Guard) SetPolicy(p EndpointPolicy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.Host = strings.ToLower(strings.TrimSpace(p.Host))
	if p.Host == "" {
		return
	}
	g.policies[p.Host] = p
}

// Policy looks up the endpoint policy for a host, case-insensitively.
func (g *Guard) Policy(host string) (EndpointPolicy, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.policies[strings.ToLower(host)]
	return p, ok
}

// Check answers allowed/blocked for a target URL without purpose or method
// context.
func (g *Guard) Check(targetURL string) Decision {
	return g.Decide("", "", targetURL)
}

// Decide evaluates an outbound request against the trust tables.
//
// Evaluation order (must not be changed):
//  1. Host extraction — absence of a host is an automatic block.
//  2. Tracker blocklist — substring match.
//  3. Circuit status — open circuit blocks; an elapsed one resets first.
//  4. Endpoint policy — purpose, method, path prefix enforcement; a missing
//     policy blocks when the guard requires one.
func (g *Guard) Decide(purpose, method, targetURL string) Decision {
	d, reclosed := g.decide(purpose, method, targetURL)
	if reclosed && g.onClosed != nil {
		g.onClosed(d.Host)
	}
	return d
}

func (g *Guard) decide(purpose, method, targetURL string) (Decision, bool) {
	u, err := url.Parse(targetURL)
	if err != nil || u.Hostname() == "" {
		return Decision{Reason: "no host in target URL"}, false
	}
	host := strings.ToLower(u.Hostname())
	reclosed := false

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, t := range g.trackers {
		if strings.Contains(host, t) || strings.Contains(host+u.Path, t) {
			return Decision{Host: host, Reason: "tracker blocked: " + t}, false
		}
	}

	if cs, ok := g.circuits[host]; ok && !cs.openUntil.IsZero() {
		if g.now().Before(cs.openUntil) {
			return Decision{Host: host, Reason: "circuit open"}, false
		}
		// Cool-down elapsed: optimistic re-close, the entry resets to zero
		// failures and this request proceeds as a fresh attempt.
		delete(g.circuits, host)
		reclosed = true
	}

	p, ok := g.policies[host]
	if !ok {
		if g.requirePolicy {
			return Decision{Host: host, Reason: "no endpoint policy for host"}, reclosed
		}
		return Decision{Allowed: true, Host: host}, reclosed
	}

	if p.RequiredPurpose != "" && purpose != p.RequiredPurpose {
		return Decision{Host: host, Reason: fmt.Sprintf("purpose %q not permitted (requires %q)", purpose, p.RequiredPurpose)}, reclosed
	}

	if method != "" && len(p.AllowedMethods) > 0 {
		allowed := false
		for _, m := range p.AllowedMethods {
			if strings.EqualFold(m, method) {
				allowed = true
				break
			}
		}
		if !allowed {
			return Decision{Host: host, Reason: "method " + method + " not allowed"}, reclosed
		}
	}

	if len(p.AllowedPathPrefixes) > 0 {
		allowed := false
		for _, prefix := range p.AllowedPathPrefixes {
			if strings.HasPrefix(u.Path, prefix) {
				allowed = true
				break
			}
		}
		if !allowed {
			return Decision{Host: host, Reason: "path " + u.Path + " not allowed"}, reclosed
		}
	}

	return Decision{
		Allowed:          true,
		Host:             host,
		AllowRedirects:   p.AllowRedirects,
		MaxResponseBytes: p.MaxResponseBytes,
		Timeout:          time.Duration(p.TimeoutSeconds) * time.Second,
		PinnedKeyHashes:  p.PinnedKeyHashes,
	}, reclosed
}

// CheckPin verifies a server's SPKI hash against the host's pinned set.
// Hosts without pins accept any key. The transport collaborator calls this
// at connection time.
func (g *Guard) CheckPin(host, spkiHash string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.policies[strings.ToLower(host)]
	if !ok || len(p.PinnedKeyHashes) == 0 {
		return nil
	}
	for _, pin := range p.PinnedKeyHashes {
		if pin == spkiHash {
			return nil
		}
	}
	return fmt.Errorf("key pin mismatch for %s", host)
}

// ReportSuccess clears the circuit status for a host after a completed
// transfer.
func (g *Guard) ReportSuccess(host string) {
	host = strings.ToLower(host)
	g.mu.Lock()
	cs, ok := g.circuits[host]
	wasOpen := ok && !cs.openUntil.IsZero()
	delete(g.circuits, host)
	g.mu.Unlock()
	if wasOpen && g.onClosed != nil {
		g.onClosed(host)
	}
}

// ReportFailure increments the host's failure count and opens the circuit
// at the trip threshold. Returns true when this report tripped the circuit.
func (g *Guard) ReportFailure(host string) bool {
	host = strings.ToLower(host)
	g.mu.Lock()
	cs, ok := g.circuits[host]
	if !ok {
		cs = &circuitStatus{}
		g.circuits[host] = cs
	}
	cs.failureCount++
	cs.lastFailureAt = g.now()
	tripped := false
	failures := cs.failureCount
	if cs.failureCount >= tripThreshold && cs.openUntil.IsZero() {
		cs.openUntil = g.now().Add(coolDown)
		tripped = true
	}
	g.mu.Unlock()
	if tripped && g.onTripped != nil {
		g.onTripped(host, failures)
	}
	return tripped
}

// FailureCount reports the current failure count for a host. Zero when no
// entry exists.
func (g *Guard) FailureCount(host string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cs, ok := g.circuits[strings.ToLower(host)]; ok {
		return cs.failureCount
	}
	return 0
}
