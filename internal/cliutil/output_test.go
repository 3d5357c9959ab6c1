package cliutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type record struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

func newOutputCommand(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	AddOutputFlags(cmd)

	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	return cmd, &out
}

func TestRenderOutput_Table(t *testing.T) {
	cmd, out := newOutputCommand(t)

	table := NewTable("NAME", "STATE")
	table.AddRow("vol-1", "available")
	table.AddRow("vol-2", "in-use")

	if err := RenderOutput(cmd, table, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "NAME") || !strings.Contains(lines[0], "STATE") {
		t.Fatalf("expected header line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "vol-1") || !strings.Contains(lines[1], "available") {
		t.Fatalf("expected first row, got %q", lines[1])
	}
}

func TestRenderOutput_JSON(t *testing.T) {
	cmd, out := newOutputCommand(t, "--output", "json")

	records := []record{{Name: "vol-1", State: "available"}}
	if err := RenderOutput(cmd, nil, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []record
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "vol-1" {
		t.Fatalf("unexpected decoded output: %+v", decoded)
	}
}

func TestRenderOutput_YAML(t *testing.T) {
	cmd, out := newOutputCommand(t, "--output", "yaml")

	records := []record{{Name: "vol-1", State: "available"}}
	if err := RenderOutput(cmd, nil, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "name: vol-1") {
		t.Fatalf("expected YAML output, got %q", out.String())
	}
}

func TestRenderOutput_UnsupportedFormat(t *testing.T) {
	cmd, _ := newOutputCommand(t, "--output", "xml")

	err := RenderOutput(cmd, NewTable("NAME"), nil)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRenderOutput_Query(t *testing.T) {
	cmd, out := newOutputCommand(t, "--query", ".[].name")

	records := []record{{Name: "vol-1"}, {Name: "vol-2"}}
	if err := RenderOutput(cmd, nil, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), `"vol-1"`) || !strings.Contains(out.String(), `"vol-2"`) {
		t.Fatalf("expected query results, got %q", out.String())
	}
}

func TestRenderOutput_QueryParseError(t *testing.T) {
	cmd, _ := newOutputCommand(t, "--query", ".[")

	err := RenderOutput(cmd, nil, []record{})
	if err == nil {
		t.Fatal("expected error for malformed query")
	}
}

func TestPadRight_Truncates(t *testing.T) {
	got := padRight("a-very-long-value", 10)
	if got != "a-very-..." {
		t.Fatalf("expected truncated value with ellipsis, got %q", got)
	}
}

func TestPadRight_ExactWidthUnchanged(t *testing.T) {
	got := padRight("exact", 5)
	if got != "exact" {
		t.Fatalf("expected exact-width value to pass through, got %q", got)
	}
}

func TestCalculateColumnWidths_CappedAtMax(t *testing.T) {
	table := NewTable("NAME")
	table.AddRow(strings.Repeat("x", 200))

	widths := calculateColumnWidths(table)
	if widths[0] != maxColumnWidth {
		t.Fatalf("expected width capped at %d, got %d", maxColumnWidth, widths[0])
	}
}
