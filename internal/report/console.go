package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/myorg/tempo/internal/controller"
	"github.com/myorg/tempo/internal/driver"
	"github.com/myorg/tempo/internal/metrics"
	"github.com/myorg/tempo/internal/timeline"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// Box-drawing Unicode characters
const (
	boxHorizontal    = "─"
	boxVertical      = "│"
	boxTopLeft       = "┌"
	boxTopRight      = "┐"
	boxBottomLeft    = "└"
	boxBottomRight   = "┘"
	boxVerticalRight = "├"
	boxVerticalLeft  = "┤"
)

const boxWidth = 70

// ConsoleFormatter formats reports for console output.
type ConsoleFormatter struct {
	writer     io.Writer
	noColor    bool
	reportPath string
}

// NewConsoleFormatter creates a new console formatter.
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{
		writer:  os.Stdout,
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

// WithWriter sets a custom writer (useful for testing).
func (cf *ConsoleFormatter) WithWriter(w io.Writer) *ConsoleFormatter {
	cf.writer = w
	return cf
}

// WithReportPath sets the path to the JSON report file.
func (cf *ConsoleFormatter) WithReportPath(path string) *ConsoleFormatter {
	cf.reportPath = path
	return cf
}

// WithNoColor disables color output.
func (cf *ConsoleFormatter) WithNoColor(noColor bool) *ConsoleFormatter {
	cf.noColor = noColor
	return cf
}

// PrintSummary prints a formatted summary of the report.
func (cf *ConsoleFormatter) PrintSummary(report *Report) {
	if report == nil {
		return
	}

	cf.printHeader(report)
	cf.printOutcomeSection(report)
	cf.printTraceSection(report.Summary)
	cf.printTickTable(report.Metrics)
	cf.printFooter()
}

func (cf *ConsoleFormatter) printHeader(report *Report) {
	cf.println(cf.boxLine(boxTopLeft, boxHorizontal, boxTopRight, boxWidth))
	cf.println(cf.boxRow(cf.bold(cf.cyan(" tempo - Run Results ")), boxWidth))
	cf.println(cf.boxLine(boxVerticalRight, boxHorizontal, boxVerticalLeft, boxWidth))

	info := report.RunInfo
	cf.println(cf.boxRow(fmt.Sprintf("  Mode: %s    Profile: %s",
		cf.bold(info.Mode),
		cf.bold(info.Profile)), boxWidth))

	if info.ClockMode != "" {
		cf.println(cf.boxRow(fmt.Sprintf("  Clock: %s    Scale: %gx    Tick: %s",
			info.ClockMode,
			info.TimeScale,
			formatDuration(info.TickInterval)), boxWidth))
	}

	cf.println(cf.boxRow(fmt.Sprintf("  Wall time: %s    Events: %d",
		cf.bold(formatDuration(info.Duration)),
		info.Events), boxWidth))

	set := report.Settings
	cf.println(cf.boxRow(fmt.Sprintf("  Timeline: %gs x %s @ %gx%s",
		set.Duration,
		formatIterations(set.Iterations),
		set.Speed,
		formatFlags(set)), boxWidth))
}

func (cf *ConsoleFormatter) printOutcomeSection(report *Report) {
	out := report.Outcome

	cf.println(cf.boxLine(boxVerticalRight, boxHorizontal, boxVerticalLeft, boxWidth))
	cf.println(cf.boxRow(cf.bold("  Outcome"), boxWidth))
	cf.println(cf.boxRow("", boxWidth))

	cf.println(cf.boxRow(fmt.Sprintf("  Status:         %s",
		cf.colorizeStatus(out.Status)), boxWidth))
	cf.println(cf.boxRow(fmt.Sprintf("  Stopped:        %s",
		cf.colorizeStopReason(out.StopReason)), boxWidth))
	cf.println(cf.boxRow(fmt.Sprintf("  Ticks:          %s",
		cf.bold(formatNumber(out.Ticks))), boxWidth))
	cf.println(cf.boxRow(fmt.Sprintf("  Final local:    %.3fs    Iteration: %s",
		out.FinalLocal,
		formatIterations(out.Iteration)), boxWidth))
	cf.println(cf.boxRow(fmt.Sprintf("  Clock elapsed:  %.3fs", out.Elapsed), boxWidth))

	if out.Completion != nil {
		cf.println(cf.boxRow(fmt.Sprintf("  Completion:     overflow %.3f, dt %.3f, %s",
			out.Completion.Overflow,
			out.Completion.Dt,
			out.Completion.Direction), boxWidth))
	}
	if out.Persisted > 0 {
		cf.println(cf.boxRow(fmt.Sprintf("  Persisted:      %s entries",
			formatNumber(out.Persisted)), boxWidth))
	}
}

func (cf *ConsoleFormatter) printTraceSection(summary *timeline.Summary) {
	if summary == nil {
		return
	}

	cf.println(cf.boxLine(boxVerticalRight, boxHorizontal, boxVerticalLeft, boxWidth))
	cf.println(cf.boxRow(cf.bold("  Trace"), boxWidth))
	cf.println(cf.boxRow("", boxWidth))

	if summary.Ticks == 0 {
		cf.println(cf.boxRow("  No ticks recorded", boxWidth))
		return
	}

	cf.println(cf.boxRow(fmt.Sprintf("  Local range:    %.3f .. %.3f",
		summary.MinLocal, summary.MaxLocal), boxWidth))
	cf.println(cf.boxRow(fmt.Sprintf("  Loops:          %d    Direction changes: %d",
		summary.Loops, summary.DirectionChanges), boxWidth))
	if summary.PersistingTicks > 0 {
		cf.println(cf.boxRow(fmt.Sprintf("  Persisting:     %d ticks",
			summary.PersistingTicks), boxWidth))
	}
}

func (cf *ConsoleFormatter) printTickTable(snapshot *metrics.Snapshot) {
	cf.println(cf.boxLine(boxVerticalRight, boxHorizontal, boxVerticalLeft, boxWidth))
	cf.println(cf.boxRow(cf.bold("  Tick interval (µs)"), boxWidth))
	cf.println(cf.boxRow("", boxWidth))

	if snapshot == nil || len(snapshot.Timelines) == 0 {
		cf.println(cf.boxRow("  No tick data available", boxWidth))
		return
	}

	header := fmt.Sprintf("  %-14s %8s %8s %8s %8s %8s",
		"Timeline", "Ticks", "Avg", "p50", "p99", "Max")
	cf.println(cf.boxRow(cf.dim(header), boxWidth))
	cf.println(cf.boxRow("  "+strings.Repeat("─", 62), boxWidth))

	names := make([]string, 0, len(snapshot.Timelines))
	for name := range snapshot.Timelines {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := snapshot.Timelines[name]
		if stats == nil {
			continue
		}
		row := fmt.Sprintf("  %-14s %8s %8s %8s %8s %8s",
			truncateString(name, 14),
			formatNumber(stats.Ticks),
			formatNumber(stats.Interval.Mean.Microseconds()),
			formatNumber(stats.Interval.P50.Microseconds()),
			formatNumber(stats.Interval.P99.Microseconds()),
			formatNumber(stats.Interval.Max.Microseconds()))
		cf.println(cf.boxRow(row, boxWidth))
	}
}

func (cf *ConsoleFormatter) printFooter() {
	cf.println(cf.boxLine(boxVerticalRight, boxHorizontal, boxVerticalLeft, boxWidth))

	if cf.reportPath != "" {
		cf.println(cf.boxRow(fmt.Sprintf("  Full report: %s", cf.dim(cf.reportPath)), boxWidth))
	}

	cf.println(cf.boxRow(fmt.Sprintf("  Generated: %s",
		cf.dim(time.Now().Format("2006-01-02 15:04:05"))), boxWidth))

	cf.println(cf.boxLine(boxBottomLeft, boxHorizontal, boxBottomRight, boxWidth))
}

// Helper methods for box drawing

func (cf *ConsoleFormatter) boxLine(left, fill, right string, width int) string {
	return left + strings.Repeat(fill, width-2) + right
}

func (cf *ConsoleFormatter) boxRow(content string, width int) string {
	// Calculate visible length (excluding ANSI codes)
	visibleLen := cf.visibleLength(content)
	padding := width - 2 - visibleLen
	if padding < 0 {
		padding = 0
	}
	return boxVertical + content + strings.Repeat(" ", padding) + boxVertical
}

func (cf *ConsoleFormatter) visibleLength(s string) int {
	// Remove ANSI escape sequences to calculate visible length
	inEscape := false
	length := 0
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		length++
	}
	return length
}

// Color helper methods

func (cf *ConsoleFormatter) colorize(s string, color string) string {
	if cf.noColor {
		return s
	}
	return color + s + colorReset
}

func (cf *ConsoleFormatter) bold(s string) string {
	return cf.colorize(s, colorBold)
}

func (cf *ConsoleFormatter) dim(s string) string {
	return cf.colorize(s, colorDim)
}

func (cf *ConsoleFormatter) green(s string) string {
	return cf.colorize(s, colorGreen)
}

func (cf *ConsoleFormatter) yellow(s string) string {
	return cf.colorize(s, colorYellow)
}

func (cf *ConsoleFormatter) red(s string) string {
	return cf.colorize(s, colorRed)
}

func (cf *ConsoleFormatter) cyan(s string) string {
	return cf.colorize(s, colorCyan)
}

func (cf *ConsoleFormatter) colorizeStatus(status controller.Status) string {
	switch status {
	case controller.StatusCompleted:
		return cf.green(status.String())
	case controller.StatusPersisting:
		return cf.yellow(status.String())
	default:
		return cf.cyan(status.String())
	}
}

func (cf *ConsoleFormatter) colorizeStopReason(reason string) string {
	switch reason {
	case driver.StopCompleted:
		return cf.green(reason)
	case driver.StopError, driver.StopCancelled:
		return cf.red(reason)
	default:
		return cf.yellow(reason)
	}
}

func (cf *ConsoleFormatter) println(s string) {
	fmt.Fprintln(cf.writer, s)
}

// Formatting helper functions

// formatNumber formats an integer with thousands separators.
// Example: 45230 -> "45,230"
func formatNumber[T int | int64](n T) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}

	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		if len(str) > remainder {
			result.WriteString(",")
		}
	}

	for i := remainder; i < len(str); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(str[i : i+3])
	}

	return result.String()
}

// formatDuration formats a duration in a human-readable way.
// Example: 5m0s, 1h30m, 2h0m0s -> "2h"
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}

	d = d.Round(time.Second)

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		if minutes == 0 && seconds == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		if seconds == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	}

	if minutes > 0 {
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// formatIterations renders an iteration count, spelling out infinity.
func formatIterations(n float64) string {
	if math.IsInf(n, 1) {
		return "∞"
	}
	return strconv.FormatFloat(n, 'g', 4, 64)
}

func formatFlags(s Settings) string {
	var flags []string
	if s.Persist {
		flags = append(flags, "persist")
	}
	if s.Pingpong {
		flags = append(flags, "pingpong")
	}
	if s.Pongping {
		flags = append(flags, "pongping")
	}
	if len(flags) == 0 {
		return ""
	}
	return " [" + strings.Join(flags, ",") + "]"
}

// truncateString truncates a string to maxLen, adding ellipsis if needed.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
