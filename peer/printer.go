package peer

import (
	"fmt"
	"io"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

var (
	streamStyle   = color.New(color.FgCyan)
	datagramStyle = color.New(color.FgYellow)
	groupStyle    = color.New(color.FgMagenta)
	infoStyle     = color.New(color.FgGreen)
	errorStyle    = color.New(color.FgRed, color.OpBold)
)

// Printer serialises console output: receivers and the prompt share one terminal.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
}

func NewPrinter(out io.Writer, colours bool) *Printer {
	return &Printer{out: out, colours: colours}
}

func (p *Printer) Println(style color.Style, text string) {
	if p.colours {
		text = style.Render(text)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, text)
}

func (p *Printer) Table(header []string, rows [][]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}
