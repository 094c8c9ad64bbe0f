package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/popcorn/internal/otel"
)

// debugPanelChrome is the number of lines DebugPanel's border and vertical
// padding take. Keep in sync with the style.
const debugPanelChrome = 4

// debugOverlay renders lifeline counters and the most recent events.
// Returns "" if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Lifelines"))
	lines = append(lines, fmt.Sprintf("  Search:   %d started, %d complete, %d errors, %d cancelled",
		stats[otel.KindSearchStart], stats[otel.KindSearchComplete], stats[otel.KindSearchError], stats[otel.KindSearchCancel]))
	lines = append(lines, fmt.Sprintf("  Detail:   %d started, %d complete, %d errors, %d cancelled",
		stats[otel.KindDetailStart], stats[otel.KindDetailComplete], stats[otel.KindDetailError], stats[otel.KindDetailCancel]))
	lines = append(lines, fmt.Sprintf("  Title:    %d applied, %d restored",
		stats[otel.KindTitleApply], stats[otel.KindTitleRestore]))
	lines = append(lines, fmt.Sprintf("  Escape:   %d registered, %d released",
		stats[otel.KindKeyRegister], stats[otel.KindKeyUnregister]))
	lines = append(lines, fmt.Sprintf("  Watched:  %d added, %d removed",
		stats[otel.KindWatchedAdd], stats[otel.KindWatchedRemove]))
	lines = append(lines, fmt.Sprintf("  Buffer:   %d / %d events", ring.Len(), ring.Cap()))
	if trail := lifelineTrail(ring, otel.KindSearchStart); trail != "" {
		lines = append(lines, "  Last search: "+trail)
	}
	if trail := lifelineTrail(ring, otel.KindDetailStart); trail != "" {
		lines = append(lines, "  Last detail: "+trail)
	}
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(20) {
		line := fmt.Sprintf("  %6s  %-22s", formatAge(time.Since(e.Time)), string(e.Kind))
		switch {
		case e.Query != "":
			line += "  " + truncateRunes(fmt.Sprintf("%q", e.Query), 30)
		case e.ItemID != "":
			line += "  " + e.ItemID
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 30)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.QueryID != "" {
			line += "  qid:" + shortQID(e.QueryID)
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 96
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// lifelineTrail follows the newest lifeline opened by a start event,
// e.g. "1a2b3c4d start > cancel (12ms)". Returns "" when none is buffered.
func lifelineTrail(ring *otel.RingBuffer, start otel.EventKind) string {
	subsystem, _, _ := strings.Cut(string(start), ".")
	events := ring.Subsystem(subsystem)

	var qid string
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == start && events[i].QueryID != "" {
			qid = events[i].QueryID
			break
		}
	}
	if qid == "" {
		return ""
	}

	var steps []string
	var dur time.Duration
	for _, e := range ring.Lifeline(qid) {
		step := string(e.Kind)
		if rest, ok := strings.CutPrefix(step, subsystem+"."); ok {
			step = rest
		}
		steps = append(steps, step)
		if e.Dur > 0 {
			dur = e.Dur
		}
	}
	trail := shortQID(qid) + " " + strings.Join(steps, " > ")
	if dur > 0 {
		trail += " (" + formatAge(dur) + ")"
	}
	return trail
}

// formatAge formats a duration compactly. Negative durations clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// truncateRunes shortens s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func shortQID(qid string) string {
	if len(qid) > 8 {
		return qid[:8]
	}
	return qid
}

func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("ctrl+d") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
