package types

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatIssues renders field errors as a markdown table under a heading.
// It returns "" when there is nothing to report.
func FormatIssues(errs FieldErrors) string {
	if len(errs) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Validation errors:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Error")
	for _, fe := range errs {
		field := fe.Field
		if field == "" {
			field = "(record)"
		}
		_ = table.Append(field, fe.Message)
	}
	_ = table.Render()
	return buf.String()
}

// FormatFields renders name/value pairs as a markdown table, skipping empty values.
func FormatFields(title string, rows [][2]string) string {
	var buf strings.Builder
	if title != "" {
		buf.WriteString("# ")
		buf.WriteString(title)
		buf.WriteString(":\n")
	}
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		_ = table.Append(row[0], row[1])
	}
	_ = table.Render()
	return buf.String()
}
