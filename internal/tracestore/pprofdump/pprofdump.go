// Package pprofdump turns a TraceStore snapshot into a pprof profile.
//
// The core store leaves profile serialization and symbolization to a
// separate consumer, but a sampling profiler that can never emit a
// profile is not a complete system. This package walks the output of
// Store.Collect and produces a *profile.Profile with one sample per trace
// and a synthetic location per frame, following oomprof's
// bucketsToPprof: dedup locations and functions by address, assign
// monotonically increasing IDs, sort locations by ID before returning.
//
// Frame symbolization (resolving a program counter to a source location)
// stays out of scope here too: each frame's raw 8-byte value is treated as
// an address and given a synthetic func_<pc> name, the same fallback
// oomprof uses when addr2line has nothing to say.
package pprofdump

import (
	"encoding/binary"
	"fmt"

	"github.com/google/pprof/profile"

	"github.com/kolkov/tracestore"
)

// PeriodType and sample type describe a counting profile: one unit per
// captured sample, no weighting.
var (
	defaultSampleType = []*profile.ValueType{{Type: "samples", Unit: "count"}}
	defaultPeriodType = &profile.ValueType{Type: "samples", Unit: "count"}
)

// Build converts snapshot (the output of Store.Collect) into a pprof
// profile. Entries with a nil trace (an arena allocation failure recorded
// by the store) are skipped: there is nothing to symbolize.
func Build(snapshot map[uint32]*tracestore.CallTrace) *profile.Profile {
	prof := &profile.Profile{
		SampleType: defaultSampleType,
		PeriodType: defaultPeriodType,
		Period:     1,
	}

	locationMap := make(map[uint64]*profile.Location)
	functionMap := make(map[uint64]*profile.Function)
	nextLocationID := uint64(1)
	nextFunctionID := uint64(1)

	for id, trace := range snapshot {
		if trace == nil {
			continue
		}

		frames := trace.Frames()
		locations := make([]*profile.Location, 0, len(frames))
		for _, f := range frames {
			addr := binary.LittleEndian.Uint64(f[:])

			loc, ok := locationMap[addr]
			if !ok {
				fn, ok := functionMap[addr]
				if !ok {
					name := fmt.Sprintf("func_%x", addr)
					fn = &profile.Function{
						ID:         nextFunctionID,
						Name:       name,
						SystemName: name,
					}
					nextFunctionID++
					functionMap[addr] = fn
					prof.Function = append(prof.Function, fn)
				}

				loc = &profile.Location{
					ID:      nextLocationID,
					Address: addr,
					Line:    []profile.Line{{Function: fn, Line: 1}},
				}
				nextLocationID++
				locationMap[addr] = loc
				prof.Location = append(prof.Location, loc)
			}
			locations = append(locations, loc)
		}

		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: locations,
			Value:    []int64{1},
			Label:    map[string][]string{"trace_id": {fmt.Sprintf("%d", id)}},
		})
	}

	sortLocationsByID(prof.Location)
	return prof
}

func sortLocationsByID(locations []*profile.Location) {
	for i := range locations {
		for j := i + 1; j < len(locations); j++ {
			if locations[i].ID > locations[j].ID {
				locations[i], locations[j] = locations[j], locations[i]
			}
		}
	}
}
