// FaultScope - Instrument Fault Correlation Tool
//
// FaultScope finds the most recent mass spectrometer fault in exported
// event logs and reports the unresolved error codes that preceded it.
package main

import (
	"os"

	"github.com/ccollicutt/faultscope/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
