package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// eventRecord mirrors otel.Event for JSON decoding. Decoding the JSONL
// directly keeps old log files readable after the event schema changes.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	QueryID   string         `json:"qid"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Query     string         `json:"query"`
	ItemID    string         `json:"item_id"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

type eventFilter struct {
	kind    string
	level   string
	comp    string
	qid     string
	rawJSON bool
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	// A qid prefix is enough; the debug overlay only shows the first 8 chars.
	if f.qid != "" && !strings.HasPrefix(ev.QueryID, f.qid) {
		return false
	}
	return true
}

func (f eventFilter) format(ev eventRecord, raw []byte) string {
	if f.rawJSON {
		return string(raw)
	}
	ts := ev.Time.Local().Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-6s] %-22s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.ItemID != "" {
		parts = append(parts, "id="+ev.ItemID)
	}
	if ev.QueryID != "" {
		parts = append(parts, "qid="+shortID(ev.QueryID))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	return strings.Join(parts, " ")
}

var (
	eventsTail   int
	eventsFollow bool
	eventsFilter eventFilter
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the structured event log",
	Long: `Print recent events from ~/.popcorn/popcorn.events.jsonl.

Filter by kind prefix (search, detail, title, keys, watched), minimum
level, component, or query id to follow a single request lifeline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath := eventLogPath()
		f, err := os.Open(logPath)
		if err != nil {
			return fmt.Errorf("event log not found at %s (run the TUI first): %w", logPath, err)
		}
		defer f.Close()

		out := cmd.OutOrStdout()
		for _, l := range readTailLines(f, eventsTail, eventsFilter.match) {
			fmt.Fprintln(out, eventsFilter.format(l.ev, l.raw))
		}
		if !eventsFollow {
			return nil
		}
		return followEvents(cmd.Context(), f, out, eventsFilter)
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsTail, "tail", 50, "number of recent lines to show")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "follow mode (like tail -f)")
	eventsCmd.Flags().StringVar(&eventsFilter.kind, "kind", "", "filter by event kind prefix (e.g. 'search')")
	eventsCmd.Flags().StringVar(&eventsFilter.level, "level", "", "minimum level: debug, info, warn, error")
	eventsCmd.Flags().StringVar(&eventsFilter.comp, "comp", "", "filter by component name")
	eventsCmd.Flags().StringVar(&eventsFilter.qid, "qid", "", "filter by query id (prefix)")
	eventsCmd.Flags().BoolVar(&eventsFilter.rawJSON, "json", false, "output raw JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

// followEvents polls r for appended lines until ctx is done.
func followEvents(ctx context.Context, r io.Reader, out io.Writer, filter eventFilter) error {
	reader := bufio.NewReader(r)
	var pending []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return err
		}

		line := trimLine(pending)
		pending = nil
		if len(line) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			fmt.Fprintln(out, filter.format(ev, line))
		}
	}
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	if n <= 0 {
		return nil
	}
	scanner := bufio.NewScanner(r)
	// Extra maps can make lines long.
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	ring := make([]parsedLine, 0, n)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// scanner reuses its buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
