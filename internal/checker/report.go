package checker

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/fatih/color"
)

// Reporter renders check results in the harness's terminal style: one
// line per asset, a diagnostic for each failure, and an aggregate
// verdict with a hint when something is off.
type Reporter struct {
	out     io.Writer
	baseURL string
	pass    *color.Color
	fail    *color.Color
}

func NewReporter(out io.Writer, baseURL string) *Reporter {
	return &Reporter{
		out:     out,
		baseURL: baseURL,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
	}
}

// Print writes the full report for one checker sweep.
func (r *Reporter) Print(results []Result) {
	fmt.Fprintf(r.out, "🧪 Checking bowiephone assets\n")
	fmt.Fprintf(r.out, "📡 Base URL: %s\n\n", r.baseURL)

	for _, res := range results {
		switch {
		case res.Err != nil:
			r.fail.Fprintf(r.out, "❌ %s: %s\n", res.Path, failureText(res.Err))
		case res.Passed():
			r.pass.Fprintf(r.out, "✅ %s: %d (%d bytes)\n", res.Path, res.StatusCode, res.Size)
		default:
			r.fail.Fprintf(r.out, "❌ %s: %d (%d bytes)\n", res.Path, res.StatusCode, res.Size)
		}

		switch res.DebugFlag {
		case DebugFlagEnabled:
			fmt.Fprintln(r.out, "   🐛 Debug mode ENABLED")
		case DebugFlagDisabled:
			fmt.Fprintln(r.out, "   🐛 Debug mode DISABLED")
		}
	}

	fmt.Fprintln(r.out)
	if AllPassed(results) {
		r.pass.Fprintln(r.out, "✅ Application server test complete - all files accessible")
	} else {
		fmt.Fprintln(r.out, "⚠️  Some issues found with the application server")
		fmt.Fprintf(r.out, "💡 Make sure the app server is serving the front-end on %s\n", r.baseURL)
	}
}

// failureText classifies a probe failure the way a developer needs to
// read it: a refused connection means the app server is not up, a
// timeout means it hangs, anything else is reported verbatim.
func failureText(err error) string {
	var nerr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused - is the app server running?"
	case errors.As(err, &nerr) && nerr.Timeout():
		return "Request timeout"
	default:
		return fmt.Sprintf("Request error - %v", err)
	}
}
