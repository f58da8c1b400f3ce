// Command tracestoredemo exercises a tracestore.Store the way a sampling
// profiler would: capturing real stacks, deduplicating them concurrently,
// and dumping or serving metrics about what has accumulated.
//
// Usage:
//
//	tracestoredemo simulate --workers 8 --duration 5s --out profile.pprof
//	tracestoredemo stats --fixture traces.json --initial-capacity 1024
//	tracestoredemo serve --addr :2112
package main

func main() {
	execute()
}
