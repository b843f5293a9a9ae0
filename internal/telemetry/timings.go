package telemetry

import (
	"sync"
	"time"

	"github.com/bft-labs/gateship/pkg/log"
)

// Timing modes tracked by the accumulator.
const (
	ModeSerializing = "serializing"
	ModePosting     = "posting"

	// modeUnspecified collects the time spent between tracked sections.
	modeUnspecified = ""
)

// Timings accumulates wall time spent in the pipeline's main phases. It is
// informational only; a nil *Timings is valid and does nothing.
type Timings struct {
	mu    sync.Mutex
	last  time.Time
	spent map[string]time.Duration
}

// NewTimings creates an accumulator starting now.
func NewTimings() *Timings {
	return &Timings{
		last:  time.Now(),
		spent: make(map[string]time.Duration),
	}
}

// Mode starts timing the given mode and returns the function that ends it:
//
//	done := timings.Mode(telemetry.ModeSerializing)
//	bodies, err := gate.Serialize(...)
//	done()
func (t *Timings) Mode(mode string) func() {
	if t == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		end := time.Now()
		t.mu.Lock()
		defer t.mu.Unlock()
		t.spent[modeUnspecified] += start.Sub(t.last)
		t.spent[mode] += end.Sub(start)
		t.last = end
	}
}

// Log writes the accumulated timings; called at every checkpoint emission.
func (t *Timings) Log(logger log.Logger) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	logger.Info("timings",
		log.Duration("unspecified", t.spent[modeUnspecified]),
		log.Duration(ModeSerializing, t.spent[ModeSerializing]),
		log.Duration(ModePosting, t.spent[ModePosting]))
}
