package cmd

import (
	"fmt"
	"strings"
	"time"
)

// ANSI color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
)

// PerformanceTimer tracks named event durations during a test run
type PerformanceTimer struct {
	starts    map[string]time.Time
	durations map[string]time.Duration
	order     []string
	started   time.Time
}

// NewPerformanceTimer creates a performance timer
func NewPerformanceTimer() *PerformanceTimer {
	return &PerformanceTimer{
		starts:    make(map[string]time.Time),
		durations: make(map[string]time.Duration),
		started:   time.Now(),
	}
}

// StartEvent marks the start of a named event
func (pt *PerformanceTimer) StartEvent(name string) {
	if _, seen := pt.starts[name]; !seen {
		pt.order = append(pt.order, name)
	}
	pt.starts[name] = time.Now()
}

// EndEvent records the elapsed time for a named event
func (pt *PerformanceTimer) EndEvent(name string) {
	if start, ok := pt.starts[name]; ok {
		pt.durations[name] = time.Since(start)
	}
}

// GetDuration returns the recorded duration for an event
func (pt *PerformanceTimer) GetDuration(name string) time.Duration {
	return pt.durations[name]
}

// GetTotalDuration returns the time since the timer was created
func (pt *PerformanceTimer) GetTotalDuration() time.Duration {
	if total, ok := pt.durations["total_test"]; ok {
		return total
	}
	return time.Since(pt.started)
}

// Events returns the recorded event names in start order
func (pt *PerformanceTimer) Events() []string {
	events := make([]string, 0, len(pt.durations))
	for _, name := range pt.order {
		if _, ok := pt.durations[name]; ok {
			events = append(events, name)
		}
	}
	return events
}

func printHeader(title, subject string) {
	fmt.Printf("%s%s%s%s: %s%s%s\n", ColorBold, ColorBlue, title, ColorReset, ColorCyan, subject, ColorReset)
	fmt.Printf("%s%s%s\n\n", ColorBlue, strings.Repeat("═", 80), ColorReset)
}

func printStep(num int, title string) {
	fmt.Printf("%s%s%d%s %s%s%s\n", ColorBold, ColorPurple, num, ColorReset, ColorWhite, title, ColorReset)
}

func printSectionHeader(title string) {
	fmt.Printf("%s%s%s%s\n", ColorBold, ColorBlue, title, ColorReset)
}

func printSuccess(format string, args ...any) {
	fmt.Printf("   %s✓%s %s\n", ColorGreen, ColorReset, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Printf("   %s⚠%s %s\n", ColorYellow, ColorReset, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Printf("   %s✗%s %s\n", ColorRed, ColorReset, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("   %s•%s %s\n", ColorCyan, ColorReset, fmt.Sprintf(format, args...))
}

func printResult(name string, success bool) {
	if success {
		fmt.Printf("%-20s %s✓ PASS%s\n", name+":", ColorGreen, ColorReset)
	} else {
		fmt.Printf("%-20s %s✗ FAIL%s\n", name+":", ColorRed, ColorReset)
	}
}

func displayPerformanceSummary(timer *PerformanceTimer) {
	for _, name := range timer.Events() {
		printInfo("%-24s %v", name+":", timer.GetDuration(name))
	}
}
