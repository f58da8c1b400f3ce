package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/kolkov/tracestore"
	"github.com/kolkov/tracestore/internal/tracestore/pprofdump"
)

// pprofReporter implements tracestore.Reporter by converting one batch of
// reported traces into a pprof profile and writing it to path.
type pprofReporter struct {
	path string
}

// ReportTraces builds a *profile.Profile from entries and writes it to the
// reporter's configured path, logging the collection metadata it received
// alongside the write.
func (r pprofReporter) ReportTraces(entries []tracestore.TraceEntry, meta tracestore.CollectionMeta) error {
	snapshot := make(map[uint32]*tracestore.CallTrace, len(entries))
	for _, e := range entries {
		snapshot[e.ID] = e.Trace
	}

	prof := pprofdump.Build(snapshot)
	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := prof.Write(f); err != nil {
		return err
	}

	log.WithField("path", r.path).
		WithField("entries", meta.Entries).
		WithField("depth", meta.TableDepth).
		WithField("at", meta.Timestamp).
		Info("wrote pprof profile")
	return nil
}
