package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

const fallbackNotice = "The model reply was not valid JSON; showing the OCR text as extracted."

var (
	headingColor = color.New(color.FgGreen, color.Bold)
	noticeColor  = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// Render writes the key/value list followed by a two-column table, or the
// raw text when the view is not structured.
func Render(w io.Writer, v View, fallback bool) error {
	headingColor.Fprintln(w, "Extracted Information")
	if fallback {
		noticeColor.Fprintln(w, fallbackNotice)
	}

	if !v.Structured {
		_, err := fmt.Fprintln(w, v.Raw)
		return err
	}

	for _, row := range v.List {
		if _, err := fmt.Fprintf(w, "%s : %s\n", row.Field, row.Value); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range v.Table {
		table.Append([]string{row.Field, row.Value})
	}
	table.Render()
	return nil
}

// RenderError writes the inline failure banner.
func RenderError(w io.Writer, err error) {
	errorColor.Fprintf(w, "⚠️ %s\n", err)
}
