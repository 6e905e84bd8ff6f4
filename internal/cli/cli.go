// Package cli formats command output for the portal binary: styled tables
// and status lines on a terminal, tab-separated plain text otherwise.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

type Mode int

const (
	// ModeTTY renders colors and bordered tables.
	ModeTTY Mode = iota
	// ModePlain writes unstyled, tab-separated output for pipes and CI.
	ModePlain
)

type styles struct {
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	dim     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1),
		cell:    lipgloss.NewStyle().Padding(0, 1),
		border:  lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Printer writes to one stream in one mode.
type Printer struct {
	Mode Mode
	w    io.Writer
	st   styles
}

// New detects the mode from w: a terminal gets ModeTTY unless NO_COLOR is
// set or TERM is dumb.
func New(w io.Writer) *Printer {
	return NewWithMode(w, detect(w))
}

func NewWithMode(w io.Writer, mode Mode) *Printer {
	return &Printer{Mode: mode, w: w, st: defaultStyles()}
}

func detect(w io.Writer) Mode {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return ModePlain
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return ModePlain
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return ModePlain
	}
	return ModeTTY
}

func (p *Printer) IsTTY() bool { return p.Mode == ModeTTY }

func (p *Printer) render(s lipgloss.Style, text string) string {
	if p.Mode != ModeTTY {
		return text
	}
	return s.Render(text)
}

// Table prints rows under headers.
func (p *Printer) Table(headers []string, rows [][]string) {
	if p.Mode != ModeTTY {
		fmt.Fprintln(p.w, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(p.w, strings.Join(r, "\t"))
		}
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.st.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.st.header
			}
			return p.st.cell
		})
	fmt.Fprintln(p.w, t.Render())
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.st.success, fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.st.warning, "warning: "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.st.err, "error: "+fmt.Sprintf(format, args...)))
}

// Dim prints secondary information such as paging footers.
func (p *Printer) Dim(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(p.st.dim, fmt.Sprintf(format, args...)))
}

func (p *Printer) Println(text string) {
	fmt.Fprintln(p.w, text)
}
