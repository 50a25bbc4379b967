package commands

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

const eventNS = "http://schemas.microsoft.com/win/2004/08/events/event"

var fixtureAnchor = time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)

type fixtureEvent struct {
	provider      string
	secondsBefore int
	data          string
}

func writeEventLog(t *testing.T, dir, name string, events ...fixtureEvent) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("<Events>\n")
	for _, ev := range events {
		ts := fixtureAnchor.Add(-time.Duration(ev.secondsBefore) * time.Second)
		fmt.Fprintf(&sb, `<Event xmlns="%s"><System><Provider Name="%s"/><TimeCreated SystemTime="%s"/>`+
			`<Keywords>0x80000000000000</Keywords><Computer>MS-LAB-02</Computer><Security UserID="S-1-5-18"/>`+
			`</System><EventData><Data>%s</Data></EventData></Event>`+"\n",
			eventNS, ev.provider, ts.Format("2006-01-02 15:04:05"), html.EscapeString(ev.data))
	}
	sb.WriteString("</Events>\n")

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("Failed to write event log: %v", err)
	}
	return path
}

// faultEpisode is a log, oldest first, whose most recent fault leaves one
// unresolved set code after an LCS pair cancels out.
func faultEpisode() []fixtureEvent {
	return []fixtureEvent{
		{"Analyst", 300, "EW: 0x20001205 = Old fault <x>"},
		{"Analyst", 40, "EW: 0x20001105 = Fault Set: Pump stalled <lcs>"},
		{"Analyst", 30, "EW: 0x20001115 = Fault Cleared: Pump stalled <lcs>"},
		{"Analyst", 20, "EW: 0x20001001 = Fault Set: Vacuum low <api>\n<string>gauge=4</string>"},
		{"Acquisition", 10, "Run aborted"},
		{"Analyst", 0, "Error: Device fault detected in  Mass Spectrometer"},
	}
}

func quietEpisode() []fixtureEvent {
	return []fixtureEvent{
		{"Analyst", 20, "EW: 0x20001001 = Fault Set: Vacuum low <api>"},
		{"Acquisition", 0, "Run complete"},
	}
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "faultscope.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func configFor(sources ...string) string {
	var sb strings.Builder
	sb.WriteString("log_sources:\n")
	for _, s := range sources {
		fmt.Fprintf(&sb, "  - %q\n", s)
	}
	return sb.String()
}

// runCommand executes cmd with args and returns its stdout.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func resetExitCode(t *testing.T) {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })
}
