package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders daily averages as CSV string.
func RenderCSV(rows []DailyRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("type,date,avg_interval_hours\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.1f\n", row.Type, row.Date, row.AvgHours))
	}

	return sb.String()
}
