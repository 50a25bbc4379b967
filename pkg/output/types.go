// Package output provides feature-bundle construction and report formatting.
package output

import (
	"time"

	"github.com/ccollicutt/faultscope/pkg/analyzer"
)

// Report is the complete output for one scanned log.
type Report struct {
	// Source is the log the report was built from.
	Source string

	// Bundle is the flat feature bundle describing the fault episode.
	Bundle *Bundle

	// Summary provides scan statistics.
	Summary Summary

	// Metadata provides context about the scan.
	Metadata Metadata
}

// Summary provides scan statistics.
type Summary struct {
	// AnchorFound reports whether an anchor fault was located.
	AnchorFound bool

	// OpenErrors is the number of error codes reported in the bundle.
	OpenErrors int

	// RecordsRead is the number of records in the log.
	RecordsRead int

	// RecordsSkipped is the number of malformed records passed over.
	RecordsSkipped int

	// RecordsScanned is the number of records parsed before the scan stopped.
	RecordsScanned int
}

// Metadata provides context about the scan.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string

	// AnalyzedAt is when the scan finished.
	AnalyzedAt time.Time

	// Duration is how long the scan took.
	Duration time.Duration
}

// NewReport creates a Report from a scan result.
func NewReport(result *analyzer.Result, version, configFile string) *Report {
	return &Report{
		Source: result.Source,
		Bundle: Build(version, result.Terminal),
		Summary: Summary{
			AnchorFound:    result.Terminal.HasAnchor(),
			OpenErrors:     len(reportedEntries(result.Terminal)),
			RecordsRead:    result.RecordsRead,
			RecordsSkipped: result.RecordsSkipped,
			RecordsScanned: result.RecordsScanned,
		},
		Metadata: Metadata{
			ConfigFile: configFile,
			AnalyzedAt: result.EndTime,
			Duration:   result.EndTime.Sub(result.StartTime),
		},
	}
}

// HasFault returns true if a fault episode was found.
func (r *Report) HasFault() bool {
	return r.Summary.AnchorFound
}
