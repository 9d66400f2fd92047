package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Bathroom Statistics Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Backend != "" {
		sb.WriteString(fmt.Sprintf("Backend: %s\n\n", r.Backend))
	}
	if r.WindowStart != nil && r.WindowEnd != nil {
		sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n",
			r.WindowStart.Format(time.RFC3339), r.WindowEnd.Format(time.RFC3339)))
	}

	// Interval statistics
	sb.WriteString("## Intervals (hours)\n\n")
	if len(r.TypeRows) > 0 {
		sb.WriteString("| Type | Events | Max | Avg | Median | Std |\n")
		sb.WriteString("|------|--------|-----|-----|--------|-----|\n")
		for _, row := range r.TypeRows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.1f | %.1f | %.1f | %.1f |\n",
				row.Type, row.EventCount, row.Max, row.Avg, row.Median, row.Std))
		}
	} else {
		sb.WriteString("No statistics available.\n")
	}
	sb.WriteString("\n")

	// Location
	sb.WriteString("## Location (%)\n\n")
	if len(r.TypeRows) > 0 {
		sb.WriteString("| Type | Inside | Outside | Other |\n")
		sb.WriteString("|------|--------|---------|-------|\n")
		for _, row := range r.TypeRows {
			sb.WriteString(fmt.Sprintf("| %s | %.1f | %.1f | %.1f |\n",
				row.Type, row.Inside, row.Outside, row.Other))
		}
	}
	sb.WriteString("\n")

	// Time of day
	sb.WriteString("## Time of Day (%)\n\n")
	if len(r.TypeRows) > 0 {
		sb.WriteString("| Type | Morning | Evening | Night |\n")
		sb.WriteString("|------|---------|---------|-------|\n")
		for _, row := range r.TypeRows {
			sb.WriteString(fmt.Sprintf("| %s | %.1f | %.1f | %.1f |\n",
				row.Type, row.Morning, row.Evening, row.Night))
		}
	}
	sb.WriteString("\n")

	// Daily averages
	sb.WriteString("## Daily Averages (hours)\n\n")
	if len(r.DailyRows) > 0 {
		sb.WriteString("| Type | Date | Avg |\n")
		sb.WriteString("|------|------|-----|\n")
		for _, row := range r.DailyRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.1f |\n", row.Type, row.Date, row.AvgHours))
		}
	} else {
		sb.WriteString("No daily averages available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
