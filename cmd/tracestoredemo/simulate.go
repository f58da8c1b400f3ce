package main

import (
	"encoding/binary"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kolkov/tracestore"
	"github.com/kolkov/tracestore/internal/tracestore/metrics"
	"github.com/kolkov/tracestore/internal/tracestore/sampler"
)

var simulateFlags struct {
	workers     int
	duration    time.Duration
	sampleRate  uint64
	out         string
	withMetrics bool
}

func init() {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Spawn concurrent workers that Put real captured stacks",
		Long: `simulate spawns a configurable number of goroutines that each
capture their current stack with runtime.Callers, convert it to a
tracestore.CallFrame slice, and call Put on a shared store for the
configured duration. It collects the result once at the end and writes a
pprof profile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	cmd.Flags().IntVar(&simulateFlags.workers, "workers", 4, "number of concurrent sampling goroutines")
	cmd.Flags().DurationVar(&simulateFlags.duration, "duration", 3*time.Second, "how long to run")
	cmd.Flags().Uint64Var(&simulateFlags.sampleRate, "sample-rate", 1, "fire 1 in N ticks (1 = every tick)")
	cmd.Flags().StringVar(&simulateFlags.out, "out", "tracestoredemo.pprof", "output pprof file path")
	cmd.Flags().BoolVar(&simulateFlags.withMetrics, "metrics", false, "register a Prometheus observer")
	rootCmd.AddCommand(cmd)
}

func runSimulate() error {
	var observer tracestore.StoreObserver
	if simulateFlags.withMetrics {
		observer = metrics.NewPrometheusObserver()
	}

	store, err := newStore(observer)
	if err != nil {
		return err
	}
	defer store.Close()

	runWorkload(store, simulateFlags.workers, simulateFlags.duration, simulateFlags.sampleRate)

	snapshot := map[uint32]*tracestore.CallTrace{}
	store.Collect(snapshot)
	log.WithField("entries", len(snapshot)).WithField("depth", store.Depth()).Info("collection complete")

	reporter := tracestore.TraceReporter{Reporter: pprofReporter{path: simulateFlags.out}}
	return reporter.Report(snapshot, tracestore.CollectionMeta{
		Timestamp:  time.Now(),
		TableDepth: store.Depth(),
	})
}

func newStore(observer tracestore.StoreObserver) (*tracestore.Store, error) {
	return tracestore.New(tracestore.Config{Observer: observer})
}

// runWorkload spawns workers concurrent goroutines that Put captured
// stacks against store for duration, gated by a sampler at the given rate.
func runWorkload(store *tracestore.Store, workers int, duration time.Duration, rate uint64) {
	s := sampler.New(sampler.Config{Enabled: rate > 1, Rate: rate})
	deadline := time.Now().Add(duration)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if s.ShouldSample() {
					frames := captureFrames()
					store.Put(frames)
				}
			}
		}(i)
	}
	wg.Wait()
	log.WithField("stats", s.Stats()).Debug("sampler cadence")
}

// captureFrames walks the current goroutine's stack with runtime.Callers
// and packs each program counter into a CallFrame.
func captureFrames() []tracestore.CallFrame {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(2, pcs)

	frames := make([]tracestore.CallFrame, n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(frames[i][:], uint64(pcs[i]))
	}
	return frames
}
