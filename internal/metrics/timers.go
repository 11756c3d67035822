// Package metrics records how long each phase of a report invocation took.
package metrics

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Timers holds one timer per phase, in the order phases were started.
type Timers struct {
	Timers map[string]*Timer `json:"timers,omitempty"`
	Order  []string          `json:"order,omitempty"`

	now func() time.Time
}

// Timer is a single phase timer.
type Timer struct {
	start time.Time

	// Seconds is set once the phase is stopped.
	Seconds float64 `json:"seconds"`
	Done    bool    `json:"done"`
}

func NewTimers() *Timers {
	return &Timers{Timers: make(map[string]*Timer), now: time.Now}
}

// Start begins the phase k. Starting a running phase restarts it.
func (ts *Timers) Start(k string) {
	if _, ok := ts.Timers[k]; !ok {
		ts.Order = append(ts.Order, k)
	}
	ts.Timers[k] = &Timer{start: ts.now()}
}

// Stop ends the phase k, ignoring phases never started.
func (ts *Timers) Stop(k string) {
	t, ok := ts.Timers[k]
	if !ok || t.Done {
		return
	}
	t.Seconds = ts.now().Sub(t.start).Seconds()
	t.Done = true
	log.Debugf("Timers: %s took %.3fs", k, t.Seconds)
}

// Track starts the phase k and returns the function stopping it.
func (ts *Timers) Track(k string) func() {
	ts.Start(k)
	return func() { ts.Stop(k) }
}
