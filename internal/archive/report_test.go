package archive

import (
	"strings"
	"testing"
	"time"
)

func TestPrintSummary(t *testing.T) {
	res := Result{
		Tag:      "newsletter",
		MaxAge:   7 * 24 * time.Hour,
		Found:    5,
		Selected: 3,
		Archived: 2,
		Failed:   1,
		Skipped:  2,
	}
	var sb strings.Builder
	if err := PrintSummary(res, &sb); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"5 bookmarks", `"newsletter"`, "2 archived", "1 failed", "2 skipped"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary %q missing %q", out, want)
		}
	}
}

func TestPrintSummaryDryRun(t *testing.T) {
	res := Result{Tag: "newsletter", MaxAge: time.Hour, Found: 2, Selected: 2, DryRun: true}
	var sb strings.Builder
	if err := PrintSummary(res, &sb); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	if !strings.Contains(sb.String(), "Dry-run: 2 would be archived") {
		t.Fatalf("unexpected dry-run summary: %q", sb.String())
	}
}

func TestWriteJSONRejectsEscapingPaths(t *testing.T) {
	tests := []string{"", "/tmp/report.json", "../report.json"}
	for _, path := range tests {
		if err := WriteJSON(Result{}, path); err == nil {
			t.Fatalf("expected error for path %q", path)
		}
	}
}
