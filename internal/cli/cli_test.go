package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestDetectNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if p := New(&buf); p.Mode != ModePlain || p.IsTTY() {
		t.Fatalf("buffer detected as %v", p.Mode)
	}
}

func TestPlainTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithMode(&buf, ModePlain)
	p.Table([]string{"ID", "Name"}, [][]string{{"1", "Acme"}, {"2", "Banco"}})
	want := "ID\tName\n1\tAcme\n2\tBanco\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestTTYTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithMode(&buf, ModeTTY)
	p.Table([]string{"ID", "Name"}, [][]string{{"1", "Acme"}})
	out := buf.String()
	for _, want := range []string{"ID", "Name", "Acme", "│"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestPlainMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewWithMode(&buf, ModePlain)
	p.Success("saved %d", 3)
	p.Warn("slow")
	p.Error("boom")
	p.Dim("page 1 of 2")
	want := "saved 3\nwarning: slow\nerror: boom\npage 1 of 2\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
