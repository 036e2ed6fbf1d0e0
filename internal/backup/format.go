package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const timeLayout = "2006-01-02 15:04:05"

// FormatRunResult renders the completion notice for a finished run.
func FormatRunResult(r Run) string {
	var b strings.Builder
	if r.OK {
		fmt.Fprintf(&b, "✅ %s backup completed in %s", titleTrigger(r.Trigger), r.Duration().Round(time.Second))
	} else {
		fmt.Fprintf(&b, "❌ %s backup failed after %s: %s", titleTrigger(r.Trigger), r.Duration().Round(time.Second), r.Error)
	}
	if r.Output != "" {
		b.WriteString("\n\n")
		b.WriteString(lastLines(r.Output, 10))
	}
	return b.String()
}

// FormatStatus renders the status summary.
func FormatStatus(st Status, now time.Time) string {
	var b strings.Builder
	b.WriteString("📊 Backup status\n")
	if st.AutoEnabled {
		fmt.Fprintf(&b, "Automatic backups: active (every %s)\n", st.Interval)
		if !st.NextRun.IsZero() {
			fmt.Fprintf(&b, "Next scheduled run: %s\n", humanize.RelTime(st.NextRun, now, "ago", "from now"))
		}
	} else {
		b.WriteString("Automatic backups: stopped\n")
	}
	if st.Running {
		fmt.Fprintf(&b, "Running: %s backup since %s\n", st.Trigger, humanize.RelTime(st.RunningSince, now, "ago", "from now"))
	} else {
		b.WriteString("Running: no\n")
	}
	if st.LastRun == nil {
		b.WriteString("Last run: never")
	} else {
		fmt.Fprintf(&b, "Last run: %s (%s, %s)", humanize.RelTime(st.LastRun.FinishedAt, now, "ago", "from now"),
			st.LastRun.Trigger, outcome(*st.LastRun))
	}
	return b.String()
}

// FormatStats renders the statistics summary.
func FormatStats(s Stats) string {
	var b strings.Builder
	b.WriteString("📈 Backup statistics\n")
	fmt.Fprintf(&b, "Runs: %d (%d ok, %d failed)\n", s.Total, s.Succeeded, s.Failed)
	fmt.Fprintf(&b, "Manual: %d, scheduled: %d\n", s.Manual, s.Scheduled)
	fmt.Fprintf(&b, "Last run: %s\n", formatRunTime(s.Last))
	fmt.Fprintf(&b, "Previous run: %s\n", formatRunTime(s.Previous))
	fmt.Fprintf(&b, "Last success: %s", formatRunTime(s.LastSuccess))
	if s.ClearedAt != nil {
		fmt.Fprintf(&b, "\nHistory cleared: %s", s.ClearedAt.Format(timeLayout))
	}
	switch {
	case s.TargetErr != nil:
		fmt.Fprintf(&b, "\nTarget size: unavailable (%v)", s.TargetErr)
	case s.TargetSize > 0:
		fmt.Fprintf(&b, "\nTarget size: %s", humanize.Bytes(uint64(s.TargetSize)))
	}
	return b.String()
}

func formatRunTime(r *Run) string {
	if r == nil {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", r.FinishedAt.Format(timeLayout), outcome(*r))
}

func outcome(r Run) string {
	if r.OK {
		return "ok"
	}
	return "failed"
}

func titleTrigger(t Trigger) string {
	if t == TriggerManual {
		return "Manual"
	}
	return "Scheduled"
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
