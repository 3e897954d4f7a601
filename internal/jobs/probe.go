package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// CheckStatus is the latest result of one Check.
type CheckStatus struct {
	Name      string    `json:"name"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// DependencyProbe runs named checks and keeps their latest results. It is a
// Task so it can be scheduled by a Worker.
type DependencyProbe struct {
	checks  map[string]Check
	timeout time.Duration

	mu     sync.RWMutex
	status map[string]CheckStatus
}

func NewDependencyProbe(timeout time.Duration) *DependencyProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DependencyProbe{
		checks:  make(map[string]Check),
		timeout: timeout,
		status:  make(map[string]CheckStatus),
	}
}

// Add registers a check. It must be called before the probe is scheduled.
func (p *DependencyProbe) Add(name string, check Check) {
	p.checks[name] = check
}

// Run executes every check and records the results. It returns an error
// naming the failed checks.
func (p *DependencyProbe) Run(ctx context.Context) error {
	var failed []string
	for name, check := range p.checks {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := check(cctx)
		cancel()

		st := CheckStatus{Name: name, OK: err == nil, CheckedAt: time.Now().UTC()}
		if err != nil {
			st.Error = err.Error()
			failed = append(failed, name)
		}
		p.mu.Lock()
		p.status[name] = st
		p.mu.Unlock()
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("dependency checks failed: %v", failed)
	}
	return nil
}

// Status returns the latest results sorted by name, and whether every
// registered check has run and passed.
func (p *DependencyProbe) Status() ([]CheckStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]CheckStatus, 0, len(p.status))
	ready := len(p.status) == len(p.checks)
	for _, st := range p.status {
		out = append(out, st)
		if !st.OK {
			ready = false
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, ready
}
