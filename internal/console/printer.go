// Package console renders collected debug entries for the developer
// watching the harness terminal.
package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/bowiephone/bowietest/internal/model"
)

// Printer writes one console line per entry, colored by severity, plus
// a location line when the entry came from a foreign page. Printing
// must never fail the ingestion path: if the colored write errors, a
// plain uncolored line is written instead and any error from that
// fallback is dropped.
type Printer struct {
	out           io.Writer
	defaultOrigin string
	colors        map[string]*color.Color
	plain         *color.Color
}

// New returns a Printer writing to out. Entries whose url equals
// defaultOrigin get no location line; the browser sends that url for
// every event raised on the app's own pages, so it carries no
// information.
func New(out io.Writer, defaultOrigin string) *Printer {
	return &Printer{
		out:           out,
		defaultOrigin: defaultOrigin,
		colors: map[string]*color.Color{
			"ERROR": color.New(color.FgRed),
			"WARN":  color.New(color.FgYellow),
			"INFO":  color.New(color.FgBlue),
			"LOG":   color.New(color.FgGreen),
		},
		plain: color.New(),
	}
}

// Print renders entry to the terminal.
func (p *Printer) Print(entry model.Entry) {
	d := entry.Display()
	if err := p.printColored(d); err != nil {
		fmt.Fprintf(p.out, "[%s] %s: %s\n", d.Timestamp, d.Type, d.Message)
	}
}

func (p *Printer) printColored(d model.Display) error {
	c, ok := p.colors[d.Type]
	if !ok {
		c = p.plain
	}
	if _, err := c.Fprintf(p.out, "[%s] %s: %s\n", d.Timestamp, d.Type, d.Message); err != nil {
		return err
	}
	if d.URL != "" && d.URL != p.defaultOrigin {
		if _, err := fmt.Fprintf(p.out, "  📍 %s\n", d.URL); err != nil {
			return err
		}
	}
	return nil
}
