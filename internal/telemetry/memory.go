package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/bft-labs/gateship/pkg/log"
)

// DefaultMemoryInterval is how often the memory reporter logs.
const DefaultMemoryInterval = 30 * time.Second

// ReportMemory logs process memory usage every interval until ctx is
// canceled. It shares no state with the pipeline; run it on its own
// goroutine.
func ReportMemory(ctx context.Context, logger log.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			logger.Info("memory usage",
				log.Int64("heap_alloc_bytes", int64(ms.HeapAlloc)),
				log.Int64("sys_bytes", int64(ms.Sys)),
				log.Int64("num_gc", int64(ms.NumGC)),
				log.Int("goroutines", runtime.NumGoroutine()))
		}
	}
}
