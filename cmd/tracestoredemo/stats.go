package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kolkov/tracestore"
)

var statsFlags struct {
	fixture         string
	initialCapacity uint32
}

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Replay a fixture of captured traces and print table structure",
		Long: `stats builds a store, replays a JSON fixture of previously captured
call stacks against it with Put, and prints the number of traces replayed,
the distinct IDs, the resulting table-chain depth and the collected entry
count the way hivectl stats prints hive structure statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	cmd.Flags().StringVar(&statsFlags.fixture, "fixture", "", "path to a JSON fixture of [][]uint64 program counters (required)")
	cmd.Flags().Uint32Var(&statsFlags.initialCapacity, "initial-capacity", 0, "override the store's initial table capacity (0 = default)")
	cmd.MarkFlagRequired("fixture")
	rootCmd.AddCommand(cmd)
}

func runStats() error {
	traces, err := loadFixture(statsFlags.fixture)
	if err != nil {
		return fmt.Errorf("loading fixture: %w", err)
	}

	cfg := tracestore.DefaultConfig()
	if statsFlags.initialCapacity != 0 {
		cfg.InitialCapacity = statsFlags.initialCapacity
	}
	store, err := tracestore.New(cfg)
	if err != nil {
		return fmt.Errorf("constructing store: %w", err)
	}
	defer store.Close()

	ids := make(map[uint32]struct{})
	for _, frames := range traces {
		ids[store.Put(frames)] = struct{}{}
	}

	snapshot := map[uint32]*tracestore.CallTrace{}
	store.Collect(snapshot)

	fmt.Printf("Trace Store Statistics\n")
	fmt.Printf("%s\n\n", strings.Repeat("=", 32))
	fmt.Printf("Fixture:\n")
	fmt.Printf("  Path: %s\n", statsFlags.fixture)
	fmt.Printf("  Traces replayed: %s\n", formatNumber(len(traces)))
	fmt.Printf("  Distinct ids: %s\n\n", formatNumber(len(ids)))
	fmt.Printf("Table Chain:\n")
	fmt.Printf("  Depth: %d table(s)\n", store.Depth())
	fmt.Printf("  Collected entries: %s\n", formatNumber(len(snapshot)))
	return nil
}

// loadFixture reads a JSON array of arrays of program-counter-like uint64
// values and converts each inner array into a []tracestore.CallFrame.
func loadFixture(path string) ([][]tracestore.CallFrame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var addrs [][]uint64
	if err := json.Unmarshal(raw, &addrs); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	traces := make([][]tracestore.CallFrame, len(addrs))
	for i, stack := range addrs {
		frames := make([]tracestore.CallFrame, len(stack))
		for j, pc := range stack {
			binary.LittleEndian.PutUint64(frames[j][:], pc)
		}
		traces[i] = frames
	}
	return traces, nil
}

func formatNumber(n int) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}
	var b strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
