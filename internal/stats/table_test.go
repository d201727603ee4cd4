package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Factor", "Total", "Sessions"}
	rows := [][]string{
		{"speed", "150", "10/10"},
		{"hesitations", "5", "1/10"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Factor      Total Sessions" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "speed         150    10/10" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "hesitations     5     1/10" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"A", "B"}, [][]string{{"日本", "x"}}, nil)
	if lines[0] != "A    B" {
		t.Fatalf("expected header padded to double-width cell, got %q", lines[0])
	}
}
