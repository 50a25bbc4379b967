package output

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ccollicutt/faultscope/pkg/analyzer"
)

func mustKey(t *testing.T, token string) analyzer.ErrorCodeKey {
	t.Helper()
	key, ok := analyzer.ParseErrorCode(token)
	if !ok {
		t.Fatalf("ParseErrorCode(%q) failed", token)
	}
	return key
}

func createTestTerminal(t *testing.T) *analyzer.Terminal {
	t.Helper()
	return &analyzer.Terminal{
		State: analyzer.StateClosed,
		Anchor: &analyzer.Anchor{
			Error:       "Device fault detected in  Mass Spectrometer",
			TimeCreated: "2024-01-01 10:00:00",
			Timestamp:   time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Computer:    "MS-LAB-01",
			Keywords:    "0x80000000000000",
			UserID:      "S-1-5-18",
		},
		Entries: []analyzer.OpenErrorEntry{
			{
				Code:        mustKey(t, "0x20001101"),
				TimeBefore:  30,
				Computer:    "MS-LAB-01",
				Keywords:    "0x80000000000000",
				UserID:      "S-1-5-18",
				Metadata:    []string{"sensor=3", "retries=0"},
				Description: "Fault Set: SensorTimeout",
				Repeat:      1,
			},
			{
				Code:        mustKey(t, "0x20001115"),
				TimeBefore:  20,
				Description: "Fault Cleared: Pump stalled",
			},
		},
		ErrorRepeat: 2,
	}
}

func TestBuild(t *testing.T) {
	b := Build("1.0.0", createTestTerminal(t))

	wantKeys := []string{
		"version", "Error", "TimeCreated", "Computer", "Keywords", "UserId", "Error_repeat",
		"0x20001101", "0x20001101 Description", "0x20001101 Details",
		"Warning",
	}
	if diff := cmp.Diff(wantKeys, b.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	checks := map[string]any{
		"version":                "1.0.0",
		"Error":                  "Device fault detected in  Mass Spectrometer",
		"UserId":                 "S-1-5-18",
		"Error_repeat":           2,
		"0x20001101":             1,
		"0x20001101 Description": "Fault Set: SensorTimeout",
		"Warning":                MissingTableWarning,
		"0x20001101 Details": Details{
			TimeBefore: 30,
			Computer:   "MS-LAB-01",
			Keywords:   "0x80000000000000",
			UserID:     "S-1-5-18",
			Metadata:   "sensor=3;retries=0;",
			Repeat:     1,
		},
	}
	for key, want := range checks {
		got, ok := b.Get(key)
		if !ok {
			t.Errorf("Get(%q) missing", key)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Get(%q) mismatch (-want +got):\n%s", key, diff)
		}
	}
}

func TestBuild_NoAnchor(t *testing.T) {
	b := Build("1.0.0", &analyzer.Terminal{State: analyzer.StateSeeking})
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBuild_TablePresentNoRepeat(t *testing.T) {
	term := createTestTerminal(t)
	term.TablePresent = true
	term.ErrorRepeat = 0
	term.Entries = nil

	b := Build("2.0.0", term)

	want := []string{"version", "Error", "TimeCreated", "Computer", "Keywords", "UserId"}
	if diff := cmp.Diff(want, b.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_WindowNeverClosed(t *testing.T) {
	term := createTestTerminal(t)
	term.Exhausted = true

	b := Build("1.0.0", term)

	want := []string{"version", "Error", "TimeCreated", "Computer", "Keywords", "UserId", "Error_repeat"}
	if diff := cmp.Diff(want, b.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestBundle_SetKeepsPosition(t *testing.T) {
	b := NewBundle()
	b.Set("a", 1)
	b.Set("b", 2)
	b.Set("a", 3)

	if diff := cmp.Diff([]string{"a", "b"}, b.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if v, _ := b.Get("a"); v != 3 {
		t.Errorf("Get(a) = %v, want 3", v)
	}
}

func TestBundle_JSONKeepsOrder(t *testing.T) {
	b := Build("1.0.0", createTestTerminal(t))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"version":"1.0.0","Error":"Device fault detected in  Mass Spectrometer",` +
		`"TimeCreated":"2024-01-01 10:00:00","Computer":"MS-LAB-01","Keywords":"0x80000000000000",` +
		`"UserId":"S-1-5-18","Error_repeat":2,"0x20001101":1,` +
		`"0x20001101 Description":"Fault Set: SensorTimeout",` +
		`"0x20001101 Details":{"TimeBefore":30,"Computer":"MS-LAB-01","Keywords":"0x80000000000000",` +
		`"UserId":"S-1-5-18","Metadata":"sensor=3;retries=0;","Repeat":1},` +
		`"Warning":"Can't find Troubleshooting Spreadsheet"}`
	if string(data) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", data, want)
	}

	var decoded Bundle
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff(b.Keys(), decoded.Keys()); diff != "" {
		t.Errorf("decoded keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := decoded.Get("0x20001101 Details"); v.(Details).Repeat != 1 {
		t.Errorf("decoded details = %+v", v)
	}
}

func TestBundle_UnmarshalRejectsNonObject(t *testing.T) {
	var b Bundle
	if err := json.Unmarshal([]byte(`[1,2]`), &b); err == nil {
		t.Error("Unmarshal() expected error for array")
	}
}
