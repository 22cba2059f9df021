package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableTo(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"Model", "Cost"}
	rows := [][]string{
		{"gemini-2.0-flash", "$0.000120"},
		{"gpt-4o-mini", "$0.000450"},
	}
	TableTo(&buf, headers, rows)

	out := buf.String()
	if !strings.Contains(out, "Model") {
		t.Error("expected header 'Model' in output")
	}
	if !strings.Contains(out, "gemini-2.0-flash") {
		t.Error("expected row data in output")
	}
	if !strings.Contains(out, "-----") {
		t.Error("expected separator line in output")
	}
}

func TestTableTo_Empty(t *testing.T) {
	var buf bytes.Buffer
	TableTo(&buf, []string{"A", "B"}, nil)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines (header+separator), got %d", len(lines))
	}
}

func TestJSONTo(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONTo(&buf, map[string]int{"tokens": 42}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"tokens": 42`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestStrPtr(t *testing.T) {
	if got := StrPtr(nil); got != "-" {
		t.Errorf("StrPtr(nil) = %q", got)
	}
	s := "winner"
	if got := StrPtr(&s); got != "winner" {
		t.Errorf("StrPtr = %q", got)
	}
}

func TestCost(t *testing.T) {
	if got := Cost(0.00012); got != "$0.000120" {
		t.Errorf("Cost = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("a longer response body", 8); got != "a longer..." {
		t.Errorf("Truncate = %q", got)
	}
}
