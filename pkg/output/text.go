package output

import (
	"context"
	"fmt"
	"io"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	status := "no anchor fault"
	if report.HasFault() {
		status = "fault found"
	}
	_, err := fmt.Fprintf(w, "FaultScope: %s: %s, %d open error(s)\n",
		report.Source, status, report.Summary.OpenErrors)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "=== FaultScope Report: %s ===\n", report.Source)
	fmt.Fprintln(w)

	if !report.HasFault() {
		fmt.Fprintln(w, "No anchor fault found")
	} else {
		f.formatBundle(report.Bundle, w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d open error(s), %d record(s) scanned, %d skipped\n",
		report.Summary.OpenErrors,
		report.Summary.RecordsScanned,
		report.Summary.RecordsSkipped)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Records read: %d\n", report.Summary.RecordsRead)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatBundle(b *Bundle, w io.Writer) {
	for _, key := range b.Keys() {
		value, _ := b.Get(key)
		switch v := value.(type) {
		case Details:
			fmt.Fprintf(w, "%s:\n", key)
			fmt.Fprintf(w, "  TimeBefore: %ds\n", v.TimeBefore)
			fmt.Fprintf(w, "  Computer: %s\n", v.Computer)
			fmt.Fprintf(w, "  Keywords: %s\n", v.Keywords)
			fmt.Fprintf(w, "  UserId: %s\n", v.UserID)
			if v.Metadata != "" {
				fmt.Fprintf(w, "  Metadata: %s\n", v.Metadata)
			}
			fmt.Fprintf(w, "  Repeat: %d\n", v.Repeat)
		default:
			fmt.Fprintf(w, "%s: %v\n", key, v)
		}
	}
}
